// Package display implements the compositor's client-facing wire protocol: a
// unix domain socket carrying newline-delimited JSON messages. Clients find
// the socket through the WAYVIL_DISPLAY environment variable, announce
// themselves with a hello, and push full frames with commit messages. The
// server applies each committed buffer before acknowledging it, so an
// acknowledged frame is always observable in screenshots.
package display

import (
	"encoding/base64"
	"fmt"
	"image"
)

// Client to server message types.
const (
	MsgHello  = "hello"
	MsgCommit = "commit"
)

// Server to client message types.
const (
	MsgAck       = "ack"
	MsgFrameDone = "frame_done"
	MsgError     = "error"
)

// Message is the envelope for every frame on the wire. Fields beyond Type are
// populated per message type.
type Message struct {
	Type string `json:"type"`

	// hello
	PID int `json:"pid,omitempty"`

	// ack
	SurfaceID uint64 `json:"surface_id,omitempty"`

	// commit
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Pixels string `json:"pixels,omitempty"` // base64 RGBA, row-major

	// error
	Error string `json:"error,omitempty"`
}

// EncodePixels serializes an RGBA buffer into the commit wire format.
func EncodePixels(img *image.RGBA) string {
	return base64.StdEncoding.EncodeToString(img.Pix)
}

// DecodePixels rebuilds an RGBA buffer from a commit message. The payload
// must hold exactly width*height*4 bytes.
func DecodePixels(width, height int, pixels string) (*image.RGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}

	raw, err := base64.StdEncoding.DecodeString(pixels)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pixel payload: %w", err)
	}

	want := width * height * 4
	if len(raw) != want {
		return nil, fmt.Errorf("pixel payload is %d bytes, want %d for %dx%d", len(raw), want, width, height)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(img.Pix, raw)
	return img, nil
}
