package compositor

import "image"

// EventType enumerates the protocol events a display backend reports.
type EventType int

const (
	// EventSurfaceCreated announces a new client surface. PID identifies the
	// creating process when known.
	EventSurfaceCreated EventType = iota
	// EventSurfaceCommitted announces that a complete frame has been applied
	// to the surface's buffer. The backend must apply the buffer before
	// emitting this event (commit-then-notify).
	EventSurfaceCommitted
	// EventSurfaceDestroyed announces that the surface is gone, either
	// because the client disconnected or its process exited.
	EventSurfaceDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventSurfaceCreated:
		return "surface-created"
	case EventSurfaceCommitted:
		return "surface-committed"
	case EventSurfaceDestroyed:
		return "surface-destroyed"
	default:
		return "unknown"
	}
}

// Event is a single display protocol notification.
type Event struct {
	Type    EventType
	Surface SurfaceID
	PID     int // surface-created only
	Width   int // surface-committed only
	Height  int // surface-committed only
}

// Backend is the display/rendering collaborator the compositor drives. The
// compositor only requires that events for a surface are delivered in order
// and that a committed buffer is fully applied before the commit event is
// observable.
type Backend interface {
	// Events delivers protocol events to the compositor loop. The channel is
	// closed when the backend shuts down.
	Events() <-chan Event

	// ReadBuffer returns a copy of the surface's last applied buffer. Only
	// valid after at least one commit; the returned image is owned by the
	// caller.
	ReadBuffer(id SurfaceID) (*image.RGBA, error)

	Close() error
}
