package display

import (
	"bufio"
	"encoding/json"
	"fmt"
	"image"
	"net"
	"os"
)

// Client is the application side of the display protocol. Real clients embed
// this; the wayvil client subcommand uses it to put test windows on screen.
type Client struct {
	conn      net.Conn
	scanner   *bufio.Scanner
	enc       *json.Encoder
	surfaceID uint64
}

// Connect dials the display socket and completes the hello handshake. The
// returned client owns one surface.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to display %s: %w", socketPath, err)
	}

	c := &Client{
		conn:    conn,
		scanner: bufio.NewScanner(conn),
		enc:     json.NewEncoder(conn),
	}
	c.scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if err := c.enc.Encode(Message{Type: MsgHello, PID: os.Getpid()}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to send hello: %w", err)
	}

	ack, err := c.read()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if ack.Type != MsgAck {
		conn.Close()
		return nil, fmt.Errorf("expected ack, got %s", ack.Type)
	}

	c.surfaceID = ack.SurfaceID
	return c, nil
}

// ConnectFromEnv dials the socket named by the WAYVIL_DISPLAY environment
// variable, the way launched applications are expected to.
func ConnectFromEnv() (*Client, error) {
	path := os.Getenv("WAYVIL_DISPLAY")
	if path == "" {
		return nil, fmt.Errorf("WAYVIL_DISPLAY is not set")
	}
	return Connect(path)
}

// SurfaceID returns the surface the compositor assigned to this client.
func (c *Client) SurfaceID() uint64 {
	return c.surfaceID
}

// Commit pushes a full frame and blocks until the compositor has applied it.
// After Commit returns, the frame is guaranteed visible to screenshots.
func (c *Client) Commit(img *image.RGBA) error {
	bounds := img.Bounds()
	msg := Message{
		Type:   MsgCommit,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pixels: EncodePixels(img),
	}
	if err := c.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to send commit: %w", err)
	}

	reply, err := c.read()
	if err != nil {
		return err
	}
	switch reply.Type {
	case MsgFrameDone:
		return nil
	case MsgError:
		return fmt.Errorf("commit rejected: %s", reply.Error)
	default:
		return fmt.Errorf("unexpected reply %s to commit", reply.Type)
	}
}

// Close disconnects, destroying the client's surface.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) read() (Message, error) {
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return Message{}, fmt.Errorf("display connection failed: %w", err)
		}
		return Message{}, fmt.Errorf("display connection closed")
	}
	var msg Message
	if err := json.Unmarshal(c.scanner.Bytes(), &msg); err != nil {
		return Message{}, fmt.Errorf("malformed reply: %w", err)
	}
	return msg, nil
}
