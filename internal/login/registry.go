package login

import (
	"context"
	"sync"
	"time"
)

// Factory builds a freshly mounted controller.
type Factory func() *Controller

// Registry keeps one mounted controller per visitor session.
type Registry struct {
	factory Factory
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// NewRegistry constructs a Registry using factory for new controllers.
func NewRegistry(factory Factory) *Registry {
	if factory == nil {
		panic("login: controller factory is required")
	}
	return &Registry{
		factory: factory,
		now:     time.Now,
		entries: make(map[string]*registryEntry),
	}
}

// Mount replaces the controller for id with a freshly mounted one, unmounting
// the previous controller if present.
func (r *Registry) Mount(id string) *Controller {
	ctrl := r.factory()

	r.mu.Lock()
	prev := r.entries[id]
	r.entries[id] = &registryEntry{ctrl: ctrl, lastSeen: r.now()}
	r.mu.Unlock()

	if prev != nil {
		prev.ctrl.Unmount()
	}
	return ctrl
}

// Get returns the controller mounted for id.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = r.now()
	return entry.ctrl, true
}

// Unmount removes and unmounts the controller for id.
func (r *Registry) Unmount(id string) {
	r.mu.Lock()
	entry := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if entry != nil {
		entry.ctrl.Unmount()
	}
}

// Len returns the number of mounted controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Prune unmounts controllers not used within idle and returns how many were removed.
func (r *Registry) Prune(idle time.Duration) int {
	cutoff := r.now().Add(-idle)

	r.mu.Lock()
	var stale []*Controller
	for id, entry := range r.entries {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry.ctrl)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, ctrl := range stale {
		ctrl.Unmount()
	}
	return len(stale)
}

// Run prunes idle controllers every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval, idle time.Duration) {
	if interval <= 0 || idle <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Prune(idle)
		}
	}
}
