package display

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/wayvil/wayvil/internal/compositor"
)

// maxLineBytes bounds a single wire message. A 4K RGBA frame base64-encodes
// to roughly 45 MB; anything larger is rejected as malformed.
const maxLineBytes = 64 << 20

// Server listens on a unix socket, speaks the display protocol with clients
// and exposes the results as a compositor.Backend. Surface IDs are assigned
// here, monotonically, and never reused.
//
// Buffer application happens on the per-connection goroutine before the
// commit event is emitted, so by the time the compositor loop observes the
// event, ReadBuffer already returns the committed frame.
type Server struct {
	socketPath string
	log        *slog.Logger

	listener net.Listener
	events   chan compositor.Event
	done     chan struct{}
	wg       sync.WaitGroup

	nextID atomic.Uint64

	mu      sync.Mutex
	buffers map[compositor.SurfaceID]*image.RGBA
	conns   map[net.Conn]struct{}
}

// NewServer creates a display server for the given socket path. Call Start
// before handing it to the compositor.
func NewServer(socketPath string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		socketPath: socketPath,
		log:        log,
		events:     make(chan compositor.Event, 128),
		done:       make(chan struct{}),
		buffers:    make(map[compositor.SurfaceID]*image.RGBA),
		conns:      make(map[net.Conn]struct{}),
	}
}

// SocketPath returns the path clients connect to.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start binds the socket and begins accepting clients.
func (s *Server) Start() error {
	if err := os.MkdirAll(filepath.Dir(s.socketPath), 0755); err != nil {
		return fmt.Errorf("failed to create socket directory: %w", err)
	}

	// A stale socket from a crashed previous run blocks the bind.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Info("display server listening", "socket", s.socketPath)
	return nil
}

// Events implements compositor.Backend. The channel closes on shutdown.
func (s *Server) Events() <-chan compositor.Event {
	return s.events
}

// ReadBuffer implements compositor.Backend. The returned image is a copy the
// caller owns.
func (s *Server) ReadBuffer(id compositor.SurfaceID) (*image.RGBA, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	img, ok := s.buffers[id]
	if !ok {
		return nil, fmt.Errorf("surface %d has no applied buffer", id)
	}
	cp := image.NewRGBA(img.Bounds())
	copy(cp.Pix, img.Pix)
	return cp, nil
}

// Close implements compositor.Backend. It stops accepting, drops every
// client connection and closes the event channel.
func (s *Server) Close() error {
	close(s.done)
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	s.wg.Wait()
	close(s.events)
	os.Remove(s.socketPath)
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// handleConn runs the protocol for one client. The connection owns exactly
// one surface, created by the hello handshake and destroyed when the
// connection drops.
func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	enc := json.NewEncoder(conn)

	// Handshake first: nothing else is valid before hello.
	if !scanner.Scan() {
		return
	}
	var hello Message
	if err := json.Unmarshal(scanner.Bytes(), &hello); err != nil || hello.Type != MsgHello {
		enc.Encode(Message{Type: MsgError, Error: "expected hello"})
		return
	}

	id := compositor.SurfaceID(s.nextID.Add(1))
	if !s.emit(compositor.Event{Type: compositor.EventSurfaceCreated, Surface: id, PID: hello.PID}) {
		return
	}
	if err := enc.Encode(Message{Type: MsgAck, SurfaceID: uint64(id)}); err != nil {
		s.dropSurface(id)
		return
	}

	s.log.Info("client connected", "surface", uint64(id), "pid", hello.PID)

	for scanner.Scan() {
		var msg Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			enc.Encode(Message{Type: MsgError, Error: "malformed message"})
			continue
		}

		switch msg.Type {
		case MsgCommit:
			if err := s.handleCommit(id, msg); err != nil {
				s.log.Warn("commit rejected", "surface", uint64(id), "err", err)
				enc.Encode(Message{Type: MsgError, Error: err.Error()})
				continue
			}
			enc.Encode(Message{Type: MsgFrameDone})

		default:
			enc.Encode(Message{Type: MsgError, Error: "unknown message type " + msg.Type})
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.log.Debug("client read failed", "surface", uint64(id), "err", err)
	}
	s.dropSurface(id)
	s.log.Info("client disconnected", "surface", uint64(id))
}

// handleCommit applies the buffer, then announces the commit. The order is
// the tear-free guarantee screenshots rely on.
func (s *Server) handleCommit(id compositor.SurfaceID, msg Message) error {
	img, err := DecodePixels(msg.Width, msg.Height, msg.Pixels)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.buffers[id] = img
	s.mu.Unlock()

	s.emit(compositor.Event{
		Type:    compositor.EventSurfaceCommitted,
		Surface: id,
		Width:   msg.Width,
		Height:  msg.Height,
	})
	return nil
}

func (s *Server) dropSurface(id compositor.SurfaceID) {
	s.mu.Lock()
	delete(s.buffers, id)
	s.mu.Unlock()
	s.emit(compositor.Event{Type: compositor.EventSurfaceDestroyed, Surface: id})
}

// emit delivers an event unless the server is shutting down. Reports whether
// delivery happened.
func (s *Server) emit(ev compositor.Event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
