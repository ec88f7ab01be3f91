package bridge

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Kind identifies the operation a Command asks the compositor to perform.
type Kind int

const (
	KindLaunchApp Kind = iota
	KindScreenshot
	KindListSurfaces
)

func (k Kind) String() string {
	switch k {
	case KindLaunchApp:
		return "launch_app"
	case KindScreenshot:
		return "screenshot"
	case KindListSurfaces:
		return "list_surfaces"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// LaunchSpec describes the external process a LaunchApp command should start.
type LaunchSpec struct {
	Executable string
	Args       []string
}

// ScreenshotSpec describes a Screenshot command. SaveTo is optional; when set
// the control plane also writes the encoded PNG to that path.
type ScreenshotSpec struct {
	SaveTo string
}

// Spawned is the success payload of a LaunchApp command.
type Spawned struct {
	SurfaceID uint64
	PID       int
}

// Frame is the success payload of a Screenshot command.
type Frame struct {
	PNG    []byte
	Width  int
	Height int
}

// SurfaceInfo is one entry in a ListSurfaces result.
type SurfaceInfo struct {
	ID      uint64
	PID     int
	Ready   bool
	Focused bool
	Width   int
	Height  int
}

// Result is the tagged outcome of a Command. Exactly one of Spawned, Frame,
// Surfaces or Err is populated, matching the command's Kind.
type Result struct {
	Spawned  *Spawned
	Frame    *Frame
	Surfaces []SurfaceInfo
	Err      error
}

// Command is a single request crossing from the control plane into the
// compositor loop. It carries a correlation token and a single-use result
// slot. The enqueuing side only ever reads the slot; the compositor loop is
// the only writer.
type Command struct {
	Token      string
	Kind       Kind
	Launch     LaunchSpec
	Screenshot ScreenshotSpec

	done      chan Result
	fulfilled atomic.Bool
}

func newCommand(kind Kind) *Command {
	return &Command{
		Token: uuid.NewString(),
		Kind:  kind,
		// Buffered so an abandoned Await never blocks the compositor loop;
		// the result is simply discarded with the command.
		done: make(chan Result, 1),
	}
}

// NewLaunchApp builds a command that starts executable with args and resolves
// once the process maps its first surface.
func NewLaunchApp(executable string, args []string) *Command {
	c := newCommand(KindLaunchApp)
	c.Launch = LaunchSpec{Executable: executable, Args: args}
	return c
}

// NewScreenshot builds a command that captures the active window.
func NewScreenshot(saveTo string) *Command {
	c := newCommand(KindScreenshot)
	c.Screenshot = ScreenshotSpec{SaveTo: saveTo}
	return c
}

// NewListSurfaces builds a command that snapshots the surface registry.
func NewListSurfaces() *Command {
	return newCommand(KindListSurfaces)
}

// Fulfill places the result in the command's slot. It must be called exactly
// once, from the goroutine draining the queue. A second call is a programming
// error, not a recoverable condition.
func (c *Command) Fulfill(r Result) {
	if !c.fulfilled.CompareAndSwap(false, true) {
		panic(fmt.Sprintf("bridge: command %s (%s) fulfilled twice", c.Token, c.Kind))
	}
	c.done <- r
}

// Fail is shorthand for fulfilling with an error.
func (c *Command) Fail(err error) {
	c.Fulfill(Result{Err: err})
}

// Await blocks the calling goroutine until the compositor fulfills the
// command or ctx is cancelled. Cancellation abandons the wait only: the
// command still executes to completion and its result is discarded.
func (c *Command) Await(ctx context.Context) (Result, error) {
	select {
	case r := <-c.done:
		return r, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
