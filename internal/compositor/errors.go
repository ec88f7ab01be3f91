package compositor

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveWindow is returned for a screenshot when no surface is
	// focused.
	ErrNoActiveWindow = errors.New("no active window")

	// ErrLaunchTimeout is returned when a launched process never maps a
	// surface within the launch timeout. The process is left running.
	ErrLaunchTimeout = errors.New("timed out waiting for the application to create a window")

	// ErrCaptureTimeout is returned when a pending surface never committed a
	// frame within the capture timeout.
	ErrCaptureTimeout = errors.New("timed out waiting for a complete frame")

	// ErrSurfaceGone is returned when the target surface was destroyed while
	// a command was waiting on it.
	ErrSurfaceGone = errors.New("surface was destroyed")

	// ErrProcessExited is returned when a launched process exited before
	// creating a surface.
	ErrProcessExited = errors.New("process exited before creating a window")

	// ErrUnknownCommand is returned for a command kind the loop does not
	// recognize.
	ErrUnknownCommand = errors.New("unknown command kind")
)

// SpawnError reports that the OS could not start a process. The command it
// belongs to fails immediately; nothing is retried.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}
