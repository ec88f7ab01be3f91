package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/wayvil/wayvil/internal/bridge"
)

// EncodeFrame encodes an applied surface buffer into the PNG payload carried
// by a screenshot result.
func EncodeFrame(img *image.RGBA) (*bridge.Frame, error) {
	if img == nil {
		return nil, fmt.Errorf("nil buffer")
	}
	bounds := img.Bounds()

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	return &bridge.Frame{
		PNG:    buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
