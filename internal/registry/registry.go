// Package registry keeps the client's view of the simulator's connection
// profiles and the operator's current selection.
package registry

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"subsim-ctl/internal/simclient"
)

// View is an immutable snapshot of the registry. Selected is empty when
// nothing is selected.
type View struct {
	Profiles []simclient.ConfigProfile `json:"profiles"`
	Selected string                    `json:"selected"`
}

// Lookup returns the profile with id.
func (v View) Lookup(id string) (simclient.ConfigProfile, bool) {
	for _, p := range v.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return simclient.ConfigProfile{}, false
}

// Empty reports whether no profiles are known.
func (v View) Empty() bool { return len(v.Profiles) == 0 }

// Registry swaps whole views atomically; readers never see a partial
// update.
type Registry struct {
	mu   sync.Mutex // serializes writers
	view atomic.Pointer[View]
	subs []func(View)
}

// New returns an empty registry.
func New() *Registry {
	r := &Registry{}
	r.view.Store(&View{})
	return r
}

// View returns the current view.
func (r *Registry) View() View {
	return *r.view.Load()
}

// Subscribe registers fn to be called with every new view.
func (r *Registry) Subscribe(fn func(View)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, fn)
}

// Replace swaps in a new profile list. The selection survives only if its
// id is still present.
func (r *Registry) Replace(profiles []simclient.ConfigProfile) View {
	r.mu.Lock()
	cur := r.view.Load()
	next := View{Profiles: append([]simclient.ConfigProfile(nil), profiles...)}
	if _, ok := next.Lookup(cur.Selected); ok {
		next.Selected = cur.Selected
	}
	return r.store(next)
}

// Select makes id the current selection.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	cur := r.view.Load()
	if _, ok := cur.Lookup(id); !ok {
		r.mu.Unlock()
		return fmt.Errorf("unknown configuration %q", id)
	}
	r.store(View{Profiles: cur.Profiles, Selected: id})
	return nil
}

// Clear drops the selection.
func (r *Registry) Clear() {
	r.mu.Lock()
	cur := r.view.Load()
	r.store(View{Profiles: cur.Profiles})
}

// Selected returns the selected profile, if any.
func (r *Registry) Selected() (simclient.ConfigProfile, bool) {
	v := r.View()
	if v.Selected == "" {
		return simclient.ConfigProfile{}, false
	}
	return v.Lookup(v.Selected)
}

// store publishes next and releases r.mu before notifying subscribers.
func (r *Registry) store(next View) View {
	r.view.Store(&next)
	subs := slices.Clone(r.subs)
	r.mu.Unlock()
	for _, fn := range subs {
		fn(next)
	}
	return next
}
