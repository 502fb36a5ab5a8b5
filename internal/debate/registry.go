package debate

import (
	"context"
	"sync"
)

// Registry keeps one controller per chat, creating and restoring it on
// first use.
type Registry struct {
	mu      sync.Mutex
	entries map[int64]*entry
	factory func(chatID int64) *Controller
}

// entry is published before its controller is restored; restored gates
// every caller until Restore has run.
type entry struct {
	ctrl     *Controller
	restored sync.Once
}

func NewRegistry(factory func(chatID int64) *Controller) *Registry {
	return &Registry{
		entries: make(map[int64]*entry),
		factory: factory,
	}
}

func (r *Registry) Get(ctx context.Context, chatID int64) *Controller {
	r.mu.Lock()
	e, ok := r.entries[chatID]
	if !ok {
		e = &entry{ctrl: r.factory(chatID)}
		r.entries[chatID] = e
	}
	r.mu.Unlock()

	e.restored.Do(func() { e.ctrl.Restore(ctx) })
	return e.ctrl
}

// Each calls fn for every known controller.
func (r *Registry) Each(fn func(chatID int64, c *Controller)) {
	r.mu.Lock()
	all := make(map[int64]*entry, len(r.entries))
	for id, e := range r.entries {
		all[id] = e
	}
	r.mu.Unlock()

	for id, e := range all {
		e.restored.Do(func() { e.ctrl.Restore(context.Background()) })
		fn(id, e.ctrl)
	}
}

// RefreshAll slides the stored expiry of every open session and forgets
// controllers whose sessions are gone.
func (r *Registry) RefreshAll(ctx context.Context) (refreshed int) {
	r.Each(func(chatID int64, c *Controller) {
		if !c.CheckExpiry(ctx) {
			if !c.IsLoading() {
				r.Forget(chatID)
			}
			return
		}
		c.RefreshExpiry(ctx)
		refreshed++
	})
	return refreshed
}

func (r *Registry) Forget(chatID int64) {
	r.mu.Lock()
	delete(r.entries, chatID)
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
