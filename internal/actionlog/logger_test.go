package actionlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDisabledLoggerWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: false, FilePath: path})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer l.Close()

	l.Log(ActionLaunch, "tok", map[string]interface{}{"executable": "xterm"})

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("disabled logger created a file")
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Log(ActionScreenshot, "tok", nil)
	if err := l.Close(); err != nil {
		t.Errorf("close: %v", err)
	}
}

func TestLogFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: true, Level: LevelInfo, FilePath: path, MaxSizeMB: 1, MaxFiles: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	l.Log(ActionLaunch, "abc-123", map[string]interface{}{
		"pid":        42,
		"executable": "xterm",
	})
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "[LAUNCH]") || !strings.Contains(line, "token=abc-123") {
		t.Errorf("line = %q", line)
	}
	// Details are sorted by key.
	if strings.Index(line, "executable=") > strings.Index(line, "pid=") {
		t.Errorf("details out of order: %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: true, Level: LevelInfo, FilePath: path, MaxSizeMB: 1, MaxFiles: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// list-surfaces logs at debug and must be filtered at info level.
	l.Log(ActionListSurfaces, "tok", nil)
	l.Log(ActionSurfaceMap, "", map[string]interface{}{"surface": 1})
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if strings.Contains(string(data), "LIST-SURFACES") {
		t.Error("debug action logged at info level")
	}
	if !strings.Contains(string(data), "SURFACE-MAP") {
		t.Error("info action missing")
	}
}

func TestLongDetailValuesTruncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: true, Level: LevelInfo, FilePath: path, MaxSizeMB: 1, MaxFiles: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	long := strings.Repeat("x", 4096)
	l.Log(ActionLaunch, "tok", map[string]interface{}{"executable": long})
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	line := string(data)
	if strings.Contains(line, long) {
		t.Error("untruncated value reached the log")
	}
	if !strings.Contains(line, strings.Repeat("x", maxDetailValueLen)+"...") {
		t.Errorf("truncation marker missing: %d bytes written", len(line))
	}
}

func TestRotation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "actions.log")
	l, err := New(Config{Enabled: true, Level: LevelDebug, FilePath: path, MaxSizeMB: 1, MaxFiles: 2})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	// Force the rotation branch without writing a megabyte.
	l.currentSize = 2 << 20
	l.Log(ActionLaunch, "tok", nil)
	l.Close()

	if _, err := os.Stat(path + ".1"); err != nil {
		t.Errorf("rotated file missing: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), "[LAUNCH]") {
		t.Error("entry missing from fresh file after rotation")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello world", 5); got != "hello..." {
		t.Errorf("got %q", got)
	}
	if got := Truncate("hello", 0); got != "hello" {
		t.Errorf("zero max: got %q", got)
	}
}
