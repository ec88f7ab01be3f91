package bridge

import "errors"

// DefaultCapacity bounds the number of outstanding commands. The queue should
// never fill in normal use; the bound exists to cap memory under RPC flooding.
const DefaultCapacity = 256

// ErrBackpressure is returned by Enqueue when the queue is full. The caller
// should retry later; commands already queued are unaffected.
var ErrBackpressure = errors.New("command queue is full")

// Queue is the thread-safe bridge between the control plane's concurrent
// request handlers and the single-threaded compositor loop. Any goroutine may
// Enqueue; only the compositor goroutine drains. FIFO order is preserved from
// enqueue through execution.
type Queue struct {
	ch chan *Command
}

// NewQueue creates a queue with the given capacity, or DefaultCapacity when
// capacity is zero or negative.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{ch: make(chan *Command, capacity)}
}

// Enqueue adds a command without blocking. Returns ErrBackpressure when the
// queue is at capacity.
func (q *Queue) Enqueue(c *Command) error {
	select {
	case q.ch <- c:
		return nil
	default:
		return ErrBackpressure
	}
}

// Drain removes and returns all currently queued commands in enqueue order.
// It never blocks. Called only from the compositor goroutine.
func (q *Queue) Drain() []*Command {
	var cmds []*Command
	for {
		select {
		case c := <-q.ch:
			cmds = append(cmds, c)
		default:
			return cmds
		}
	}
}

// Len reports the number of commands currently queued.
func (q *Queue) Len() int {
	return len(q.ch)
}
