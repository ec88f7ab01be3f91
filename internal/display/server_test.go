package display

import (
	"image"
	"image/color"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/wayvil/wayvil/internal/compositor"
)

func startServer(t *testing.T) *Server {
	t.Helper()
	sock := filepath.Join(t.TempDir(), "display.sock")
	srv := NewServer(sock, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := srv.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

func nextEvent(t *testing.T, srv *Server) compositor.Event {
	t.Helper()
	select {
	case ev, ok := <-srv.Events():
		if !ok {
			t.Fatal("event channel closed")
		}
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no event")
	}
	return compositor.Event{}
}

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestHandshakeAssignsSurface(t *testing.T) {
	srv := startServer(t)

	client, err := Connect(srv.SocketPath())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()

	if client.SurfaceID() == 0 {
		t.Error("surface id must be nonzero")
	}

	ev := nextEvent(t, srv)
	if ev.Type != compositor.EventSurfaceCreated {
		t.Fatalf("event = %v, want surface-created", ev.Type)
	}
	if uint64(ev.Surface) != client.SurfaceID() {
		t.Errorf("event surface %d, client got %d", ev.Surface, client.SurfaceID())
	}
	if ev.PID == 0 {
		t.Error("hello pid was not propagated")
	}
}

func TestCommitAppliesBeforeEvent(t *testing.T) {
	srv := startServer(t)

	client, err := Connect(srv.SocketPath())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	nextEvent(t, srv) // created

	red := color.RGBA{R: 255, A: 255}
	if err := client.Commit(solidFrame(4, 3, red)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	ev := nextEvent(t, srv)
	if ev.Type != compositor.EventSurfaceCommitted || ev.Width != 4 || ev.Height != 3 {
		t.Fatalf("event = %+v, want 4x3 commit", ev)
	}

	// The buffer must already be applied when the event is observable.
	img, err := srv.ReadBuffer(ev.Surface)
	if err != nil {
		t.Fatalf("read buffer: %v", err)
	}
	if got := img.RGBAAt(2, 1); got != red {
		t.Errorf("pixel = %v, want %v", got, red)
	}
}

func TestRecommitReplacesBuffer(t *testing.T) {
	srv := startServer(t)

	client, err := Connect(srv.SocketPath())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	nextEvent(t, srv)

	if err := client.Commit(solidFrame(2, 2, color.RGBA{R: 255, A: 255})); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	nextEvent(t, srv)

	blue := color.RGBA{B: 255, A: 255}
	if err := client.Commit(solidFrame(2, 2, blue)); err != nil {
		t.Fatalf("second commit: %v", err)
	}
	ev := nextEvent(t, srv)

	img, err := srv.ReadBuffer(ev.Surface)
	if err != nil {
		t.Fatalf("read buffer: %v", err)
	}
	if got := img.RGBAAt(0, 0); got != blue {
		t.Errorf("pixel = %v, want %v", got, blue)
	}
}

func TestDisconnectDestroysSurface(t *testing.T) {
	srv := startServer(t)

	client, err := Connect(srv.SocketPath())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	created := nextEvent(t, srv)

	client.Close()

	ev := nextEvent(t, srv)
	if ev.Type != compositor.EventSurfaceDestroyed || ev.Surface != created.Surface {
		t.Fatalf("event = %+v, want destroy of surface %d", ev, created.Surface)
	}
	if _, err := srv.ReadBuffer(created.Surface); err == nil {
		t.Error("buffer survived disconnect")
	}
}

func TestSurfaceIDsNeverReused(t *testing.T) {
	srv := startServer(t)

	seen := make(map[uint64]bool)
	for i := 0; i < 3; i++ {
		client, err := Connect(srv.SocketPath())
		if err != nil {
			t.Fatalf("connect %d: %v", i, err)
		}
		id := client.SurfaceID()
		if seen[id] {
			t.Fatalf("surface id %d reused", id)
		}
		seen[id] = true
		client.Close()
		nextEvent(t, srv) // created
		nextEvent(t, srv) // destroyed
	}
}

func TestCommitSizeMismatchRejected(t *testing.T) {
	srv := startServer(t)

	client, err := Connect(srv.SocketPath())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer client.Close()
	nextEvent(t, srv)

	// Hand-build a commit whose payload disagrees with its dimensions.
	img := solidFrame(2, 2, color.RGBA{A: 255})
	err = client.enc.Encode(Message{Type: MsgCommit, Width: 10, Height: 10, Pixels: EncodePixels(img)})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	reply, err := client.read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if reply.Type != MsgError {
		t.Fatalf("reply = %+v, want error", reply)
	}

	// The connection survives a rejected commit.
	if err := client.Commit(img); err != nil {
		t.Fatalf("follow-up commit: %v", err)
	}
}

func TestStaleSocketRemovedOnStart(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "display.sock")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	first := NewServer(sock, log)
	if err := first.Start(); err != nil {
		t.Fatalf("first start: %v", err)
	}
	first.Close()

	second := NewServer(sock, log)
	if err := second.Start(); err != nil {
		t.Fatalf("restart over stale socket: %v", err)
	}
	second.Close()
}
