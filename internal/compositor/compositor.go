package compositor

import (
	"context"
	"log/slog"
	"time"

	"github.com/wayvil/wayvil/internal/actionlog"
	"github.com/wayvil/wayvil/internal/bridge"
)

const (
	// DefaultTick paces command dispatch and timeout sweeps.
	DefaultTick = 16 * time.Millisecond

	// DefaultLaunchTimeout bounds how long a LaunchApp command waits for the
	// spawned process to map its first surface.
	DefaultLaunchTimeout = 10 * time.Second

	// DefaultCaptureTimeout bounds how long a Screenshot command waits for a
	// pending surface to commit its first frame.
	DefaultCaptureTimeout = 5 * time.Second
)

// Options tunes the compositor loop. Zero values select the defaults above.
type Options struct {
	Tick           time.Duration
	LaunchTimeout  time.Duration
	CaptureTimeout time.Duration
	FocusPolicy    FocusPolicy
}

// launchWait is a LaunchApp command parked until its process maps a surface.
// Keyed by pid in Compositor.launchWaits; surface stays 0 until the backend
// attributes a created surface to the pid.
type launchWait struct {
	cmd      *bridge.Command
	pid      int
	surface  SurfaceID
	deadline time.Time
}

// captureWait is a Screenshot command parked until its target surface has an
// applied buffer. Waits resolve strictly in FIFO order; only the head is ever
// eligible, so captures never interleave.
type captureWait struct {
	cmd      *bridge.Command
	surface  SurfaceID
	deadline time.Time
}

// Compositor owns all window state and executes bridged commands. Everything
// it touches (registry, waits, backend reads) is confined to the goroutine
// running Run; concurrency enters only through the command queue and leaves
// only through result slots.
type Compositor struct {
	backend  Backend
	registry *Registry
	launcher *Launcher
	queue    *bridge.Queue

	log     *slog.Logger
	actions *actionlog.Logger

	launchWaits map[int]*launchWait
	captures    []*captureWait

	tick           time.Duration
	launchTimeout  time.Duration
	captureTimeout time.Duration

	now func() time.Time // test hook
}

// New wires a compositor around its collaborators. actions may be nil.
func New(backend Backend, launcher *Launcher, queue *bridge.Queue, log *slog.Logger, actions *actionlog.Logger, opts Options) *Compositor {
	if log == nil {
		log = slog.Default()
	}
	if opts.Tick <= 0 {
		opts.Tick = DefaultTick
	}
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = DefaultLaunchTimeout
	}
	if opts.CaptureTimeout <= 0 {
		opts.CaptureTimeout = DefaultCaptureTimeout
	}
	return &Compositor{
		backend:        backend,
		registry:       NewRegistry(opts.FocusPolicy),
		launcher:       launcher,
		queue:          queue,
		log:            log,
		actions:        actions,
		launchWaits:    make(map[int]*launchWait),
		tick:           opts.Tick,
		launchTimeout:  opts.LaunchTimeout,
		captureTimeout: opts.CaptureTimeout,
		now:            time.Now,
	}
}

// Run drives the event loop until ctx is cancelled or the backend's event
// channel closes. On exit every parked and queued command fails so no caller
// is left awaiting a result forever.
func (c *Compositor) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	events := c.backend.Events()
	var exits <-chan int
	if c.launcher != nil {
		exits = c.launcher.Exits()
	}

	c.log.Info("compositor loop started", "tick", c.tick)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				c.log.Info("display backend closed")
				c.shutdown(context.Canceled)
				return nil
			}
			c.handleEvent(ev)

		case pid := <-exits:
			c.handleProcessExit(pid)

		case <-ticker.C:
			c.dispatch()
			c.expireWaits()

		case <-ctx.Done():
			c.shutdown(ctx.Err())
			return ctx.Err()
		}
	}
}

// dispatch drains the command queue and executes every command in enqueue
// order within the current tick.
func (c *Compositor) dispatch() {
	for _, cmd := range c.queue.Drain() {
		c.execute(cmd)
	}
}

func (c *Compositor) execute(cmd *bridge.Command) {
	c.log.Debug("executing command", "token", cmd.Token, "kind", cmd.Kind.String())

	switch cmd.Kind {
	case bridge.KindLaunchApp:
		c.executeLaunch(cmd)
	case bridge.KindScreenshot:
		c.executeScreenshot(cmd)
	case bridge.KindListSurfaces:
		c.executeListSurfaces(cmd)
	default:
		c.log.Warn("unknown command kind", "token", cmd.Token, "kind", int(cmd.Kind))
		cmd.Fail(ErrUnknownCommand)
	}
}

// executeLaunch spawns the process and parks the command until the process
// maps a surface. Spawn failures resolve immediately; a started process that
// never maps resolves by timeout, with the process left running.
func (c *Compositor) executeLaunch(cmd *bridge.Command) {
	pid, err := c.launcher.Spawn(cmd.Launch.Executable, cmd.Launch.Args)
	if err != nil {
		c.log.Error("spawn failed", "executable", cmd.Launch.Executable, "err", err)
		c.actions.Log(actionlog.ActionLaunch, cmd.Token, map[string]interface{}{
			"executable": cmd.Launch.Executable,
			"error":      err.Error(),
		})
		cmd.Fail(err)
		return
	}

	c.actions.Log(actionlog.ActionLaunch, cmd.Token, map[string]interface{}{
		"executable": cmd.Launch.Executable,
		"pid":        pid,
	})

	c.launchWaits[pid] = &launchWait{
		cmd:      cmd,
		pid:      pid,
		deadline: c.now().Add(c.launchTimeout),
	}
}

// executeScreenshot resolves the active surface now and parks the capture.
// The target is pinned at execution time; focus changes afterwards do not
// redirect the capture.
func (c *Compositor) executeScreenshot(cmd *bridge.Command) {
	active := c.registry.Active()
	if active == nil {
		c.actions.Log(actionlog.ActionScreenshot, cmd.Token, map[string]interface{}{
			"error": ErrNoActiveWindow.Error(),
		})
		cmd.Fail(ErrNoActiveWindow)
		return
	}

	c.captures = append(c.captures, &captureWait{
		cmd:      cmd,
		surface:  active.ID,
		deadline: c.now().Add(c.captureTimeout),
	})
	c.attemptCaptures()
}

func (c *Compositor) executeListSurfaces(cmd *bridge.Command) {
	var focused SurfaceID
	if active := c.registry.Active(); active != nil {
		focused = active.ID
	}

	snapshot := c.registry.Snapshot()
	infos := make([]bridge.SurfaceInfo, 0, len(snapshot))
	for _, s := range snapshot {
		infos = append(infos, bridge.SurfaceInfo{
			ID:      uint64(s.ID),
			PID:     s.PID,
			Ready:   s.Ready,
			Focused: s.ID == focused,
			Width:   s.Width,
			Height:  s.Height,
		})
	}

	c.actions.Log(actionlog.ActionListSurfaces, cmd.Token, map[string]interface{}{
		"count": len(infos),
	})
	cmd.Fulfill(bridge.Result{Surfaces: infos})
}

// attemptCaptures resolves capture waits from the head of the queue. A ready
// target is read and encoded synchronously; a pending target stalls the whole
// queue until it commits, is destroyed, or times out.
func (c *Compositor) attemptCaptures() {
	for len(c.captures) > 0 {
		head := c.captures[0]

		s := c.registry.Get(head.surface)
		if s == nil {
			c.failCapture(head, ErrSurfaceGone)
			c.captures = c.captures[1:]
			continue
		}
		if !s.Ready {
			return
		}

		img, err := c.backend.ReadBuffer(head.surface)
		if err != nil {
			c.failCapture(head, err)
			c.captures = c.captures[1:]
			continue
		}

		frame, err := EncodeFrame(img)
		if err != nil {
			c.failCapture(head, err)
			c.captures = c.captures[1:]
			continue
		}

		details := map[string]interface{}{
			"surface": uint64(head.surface),
			"width":   frame.Width,
			"height":  frame.Height,
			"bytes":   len(frame.PNG),
		}
		if head.cmd.Screenshot.SaveTo != "" {
			details["save_to"] = head.cmd.Screenshot.SaveTo
		}
		c.actions.Log(actionlog.ActionScreenshot, head.cmd.Token, details)
		head.cmd.Fulfill(bridge.Result{Frame: frame})
		c.captures = c.captures[1:]
	}
}

func (c *Compositor) failCapture(w *captureWait, err error) {
	c.log.Warn("capture failed", "token", w.cmd.Token, "surface", uint64(w.surface), "err", err)
	c.actions.Log(actionlog.ActionScreenshot, w.cmd.Token, map[string]interface{}{
		"surface": uint64(w.surface),
		"error":   err.Error(),
	})
	w.cmd.Fail(err)
}

func (c *Compositor) handleEvent(ev Event) {
	switch ev.Type {
	case EventSurfaceCreated:
		c.registry.Add(ev.Surface, ev.PID)
		c.log.Info("surface created", "surface", uint64(ev.Surface), "pid", ev.PID)
		if w, ok := c.launchWaits[ev.PID]; ok && w.surface == 0 {
			w.surface = ev.Surface
		}

	case EventSurfaceCommitted:
		s := c.registry.Get(ev.Surface)
		if s == nil {
			c.log.Warn("commit for unknown surface", "surface", uint64(ev.Surface))
			return
		}
		first := !s.Ready
		c.registry.MarkReady(ev.Surface, ev.Width, ev.Height)
		if first {
			c.actions.Log(actionlog.ActionSurfaceMap, "", map[string]interface{}{
				"surface": uint64(ev.Surface),
				"pid":     s.PID,
				"width":   ev.Width,
				"height":  ev.Height,
			})
			c.resolveLaunch(ev.Surface)
		}
		c.attemptCaptures()

	case EventSurfaceDestroyed:
		s := c.registry.Get(ev.Surface)
		if s == nil {
			return
		}
		c.registry.Remove(ev.Surface)
		c.log.Info("surface destroyed", "surface", uint64(ev.Surface), "pid", s.PID)
		c.actions.Log(actionlog.ActionSurfaceUnmap, "", map[string]interface{}{
			"surface": uint64(ev.Surface),
			"pid":     s.PID,
		})

		// A launch still waiting on this surface can never resolve.
		for pid, w := range c.launchWaits {
			if w.surface == ev.Surface {
				w.cmd.Fail(ErrSurfaceGone)
				delete(c.launchWaits, pid)
			}
		}
		c.failCapturesFor(ev.Surface, ErrSurfaceGone)
	}
}

// resolveLaunch completes the launch wait attributed to surface, if any. The
// wait resolves on the first commit, not on creation: callers get a surface
// that is immediately screenshotable.
func (c *Compositor) resolveLaunch(surface SurfaceID) {
	for pid, w := range c.launchWaits {
		if w.surface != surface {
			continue
		}
		w.cmd.Fulfill(bridge.Result{Spawned: &bridge.Spawned{
			SurfaceID: uint64(surface),
			PID:       w.pid,
		}})
		delete(c.launchWaits, pid)
		return
	}
}

// handleProcessExit fails a launch wait whose process died before mapping a
// surface. A process that already mapped resolves through the surface
// lifecycle instead.
func (c *Compositor) handleProcessExit(pid int) {
	w, ok := c.launchWaits[pid]
	if !ok || w.surface != 0 {
		return
	}
	c.log.Warn("process exited before mapping a surface", "pid", pid)
	w.cmd.Fail(ErrProcessExited)
	delete(c.launchWaits, pid)
}

// expireWaits times out launches and captures past their deadlines. Launch
// timeouts leave the process running; only the command fails.
func (c *Compositor) expireWaits() {
	now := c.now()

	for pid, w := range c.launchWaits {
		if now.Before(w.deadline) {
			continue
		}
		c.log.Warn("launch timed out", "pid", pid, "token", w.cmd.Token)
		w.cmd.Fail(ErrLaunchTimeout)
		delete(c.launchWaits, pid)
	}

	kept := c.captures[:0]
	expired := false
	for _, w := range c.captures {
		if now.Before(w.deadline) {
			kept = append(kept, w)
			continue
		}
		c.failCapture(w, ErrCaptureTimeout)
		expired = true
	}
	c.captures = kept

	// Evicting a stalled head may expose a successor whose target is already
	// ready; resolve it now rather than letting it idle into its own timeout.
	if expired {
		c.attemptCaptures()
	}
}

// failCapturesFor removes and fails every capture wait targeting surface.
func (c *Compositor) failCapturesFor(surface SurfaceID, err error) {
	kept := c.captures[:0]
	for _, w := range c.captures {
		if w.surface != surface {
			kept = append(kept, w)
			continue
		}
		c.failCapture(w, err)
	}
	c.captures = kept
	c.attemptCaptures()
}

// shutdown fails everything still in flight so awaiting callers unblock.
func (c *Compositor) shutdown(cause error) {
	if cause == nil {
		cause = context.Canceled
	}
	for _, cmd := range c.queue.Drain() {
		cmd.Fail(cause)
	}
	for pid, w := range c.launchWaits {
		w.cmd.Fail(cause)
		delete(c.launchWaits, pid)
	}
	for _, w := range c.captures {
		w.cmd.Fail(cause)
	}
	c.captures = nil
}
