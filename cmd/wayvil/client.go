package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wayvil/wayvil/internal/display"
)

// runClient is a minimal display client: it connects to the compositor,
// commits an animated test pattern and holds the surface open until killed.
// Useful as a launch_app target when no real clients are around.
func runClient(args []string) int {
	fs := flag.NewFlagSet("client", flag.ExitOnError)
	socketPath := fs.String("socket", "", "Display socket (default: $WAYVIL_DISPLAY)")
	width := fs.Int("width", 320, "Surface width in pixels")
	height := fs.Int("height", 240, "Surface height in pixels")
	frames := fs.Int("frames", 0, "Number of frames to commit before holding (0 = one frame)")
	interval := fs.Duration("interval", 100*time.Millisecond, "Delay between frames")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wayvil client [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Connect to a running compositor and put a test window on screen.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	var client *display.Client
	var err error
	if *socketPath != "" {
		client, err = display.Connect(*socketPath)
	} else {
		client, err = display.ConnectFromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		return 1
	}
	defer client.Close()

	fmt.Fprintf(os.Stderr, "Connected as surface %d\n", client.SurfaceID())

	total := *frames
	if total < 1 {
		total = 1
	}
	for i := 0; i < total; i++ {
		if err := client.Commit(testFrame(*width, *height, i)); err != nil {
			fmt.Fprintf(os.Stderr, "Commit failed: %v\n", err)
			return 1
		}
		if i < total-1 {
			time.Sleep(*interval)
		}
	}

	// Keep the surface alive; the compositor destroys it when we exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return 0
}

// testFrame renders a gradient with a frame-dependent tint so consecutive
// commits are visibly different in screenshots.
func testFrame(width, height, frame int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	tint := uint8((frame * 37) % 256)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / max(width, 1)),
				G: uint8(y * 255 / max(height, 1)),
				B: tint,
				A: 255,
			})
		}
	}
	return img
}
