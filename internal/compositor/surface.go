package compositor

import "time"

// SurfaceID is the opaque handle of a compositor-managed window. IDs are
// assigned by the display backend at surface creation and never reused.
type SurfaceID uint64

// Surface tracks one client window. It is owned exclusively by the Registry;
// only the compositor goroutine mutates it. Other threads see surfaces only
// as value copies inside command results.
type Surface struct {
	ID  SurfaceID
	PID int // 0 until the backend reports the creating process

	// Ready flips to true on the first complete commit and stays true.
	Ready bool

	Width  int
	Height int

	CreatedAt  time.Time
	LastCommit time.Time
}

// Registry tracks live surfaces. Single writer (the compositor goroutine),
// so no internal locking; Snapshot returns value copies safe to hand across
// threads.
type Registry struct {
	surfaces map[SurfaceID]*Surface
	order    []SurfaceID // creation order
	policy   FocusPolicy
	now      func() time.Time // test hook
}

// NewRegistry creates an empty registry using the given focus policy, or
// MostRecent when policy is nil.
func NewRegistry(policy FocusPolicy) *Registry {
	if policy == nil {
		policy = MostRecent{}
	}
	return &Registry{
		surfaces: make(map[SurfaceID]*Surface),
		policy:   policy,
		now:      time.Now,
	}
}

// Add registers a new surface in pending state. pid may be 0 when the backend
// could not attribute the surface to a process.
func (r *Registry) Add(id SurfaceID, pid int) *Surface {
	s := &Surface{
		ID:        id,
		PID:       pid,
		CreatedAt: r.now(),
	}
	r.surfaces[id] = s
	r.order = append(r.order, id)
	return s
}

// MarkReady records a complete commit for the surface: the first one flips
// the surface from pending to ready.
func (r *Registry) MarkReady(id SurfaceID, width, height int) *Surface {
	s, ok := r.surfaces[id]
	if !ok {
		return nil
	}
	s.Ready = true
	s.Width = width
	s.Height = height
	s.LastCommit = r.now()
	return s
}

// Get returns the surface for id, or nil.
func (r *Registry) Get(id SurfaceID) *Surface {
	return r.surfaces[id]
}

// Remove drops a surface. Safe to call for unknown ids.
func (r *Registry) Remove(id SurfaceID) {
	if _, ok := r.surfaces[id]; !ok {
		return
	}
	delete(r.surfaces, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of live surfaces.
func (r *Registry) Len() int {
	return len(r.surfaces)
}

// Active resolves the focused surface through the registry's policy, or nil
// when no surface qualifies.
func (r *Registry) Active() *Surface {
	if len(r.order) == 0 {
		return nil
	}
	ordered := make([]*Surface, 0, len(r.order))
	for _, id := range r.order {
		ordered = append(ordered, r.surfaces[id])
	}
	return r.policy.Active(ordered)
}

// Snapshot returns value copies of all live surfaces in creation order.
func (r *Registry) Snapshot() []Surface {
	out := make([]Surface, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.surfaces[id])
	}
	return out
}

// FocusPolicy selects the active surface from the live set. surfaces are in
// creation order and never empty.
type FocusPolicy interface {
	Active(surfaces []*Surface) *Surface
}

// MostRecent focuses the most recently created ready surface, falling back to
// the most recently created surface when none is ready yet.
type MostRecent struct{}

func (MostRecent) Active(surfaces []*Surface) *Surface {
	for i := len(surfaces) - 1; i >= 0; i-- {
		if surfaces[i].Ready {
			return surfaces[i]
		}
	}
	return surfaces[len(surfaces)-1]
}

// Oldest focuses the first-created surface still alive.
type Oldest struct{}

func (Oldest) Active(surfaces []*Surface) *Surface {
	for _, s := range surfaces {
		if s.Ready {
			return s
		}
	}
	return surfaces[0]
}

// PolicyByName resolves a focus policy from its config name. Unknown names
// fall back to MostRecent.
func PolicyByName(name string) FocusPolicy {
	switch name {
	case "oldest":
		return Oldest{}
	default:
		return MostRecent{}
	}
}
