package compositor

import (
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSpawnMissingExecutable(t *testing.T) {
	l := NewLauncher("/tmp/test.sock", discardLog())

	_, err := l.Spawn("/nonexistent/binary-xyzzy", nil)
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("got %v, want SpawnError", err)
	}
	if !errors.Is(err, exec.ErrNotFound) && spawnErr.Unwrap() == nil {
		t.Errorf("SpawnError does not wrap the lookup failure: %v", err)
	}
}

func TestSpawnSetsDisplayEnv(t *testing.T) {
	l := NewLauncher("/run/wayvil/display.sock", discardLog())

	var captured []string
	l.startFn = func(cmd *exec.Cmd) error {
		captured = cmd.Env
		return errors.New("not really starting")
	}

	_, err := l.Spawn("sleep", []string{"30"})
	if err == nil {
		t.Fatal("expected the injected start failure")
	}

	want := DisplayEnv + "=/run/wayvil/display.sock"
	found := false
	for _, kv := range captured {
		if kv == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("%s not in child environment", want)
	}
}

func TestSpawnStartFailure(t *testing.T) {
	l := NewLauncher("/tmp/test.sock", discardLog())
	l.startFn = func(cmd *exec.Cmd) error {
		return errors.New("fork failed")
	}

	_, err := l.Spawn("sleep", []string{"30"})
	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("got %v, want SpawnError", err)
	}
	if !strings.Contains(err.Error(), "fork failed") {
		t.Errorf("error %q does not carry the cause", err)
	}
}

func TestSpawnReportsExit(t *testing.T) {
	l := NewLauncher("/tmp/test.sock", discardLog())

	pid, err := l.Spawn("true", nil)
	if err != nil {
		t.Fatalf("spawn: %v", err)
	}
	if pid <= 0 {
		t.Fatalf("pid = %d", pid)
	}

	select {
	case got := <-l.Exits():
		if got != pid {
			t.Errorf("exit pid = %d, want %d", got, pid)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no exit notification")
	}
}
