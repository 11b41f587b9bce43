// Package layers tracks which overlay layers are rendered on a map and keeps
// them in step with their asynchronously fetched data.
//
// A Registry maps a logical layer name to its single rendered handle. A Sync
// drives one optional layer through absent, loading and present, tagging every
// fetch with a generation so stale results are dropped.
package layers

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Layer names used across the service.
const (
	Population  = "population"
	Transit     = "transit"
	TransitInfo = "transit-info"
	UserPoints  = "user-points"
	Polylines   = "polylines"
	Agency      = "agency"
)

// Handle is the rendered instance of a layer.
type Handle struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Generation uint64    `json:"generation"`
	Payload    any       `json:"payload"`
	AddedAt    time.Time `json:"addedAt"`
}

// Registry holds at most one handle per layer name.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
	bus     *Bus
}

// NewRegistry creates a registry publishing changes on bus. bus may be nil.
func NewRegistry(bus *Bus) *Registry {
	return &Registry{
		handles: make(map[string]Handle),
		bus:     bus,
	}
}

// Put installs payload as the layer's handle, replacing any previous one in
// the same critical section so readers never observe both or neither.
func (r *Registry) Put(name string, gen uint64, payload any) Handle {
	h := Handle{
		ID:         uuid.NewString(),
		Name:       name,
		Generation: gen,
		Payload:    payload,
		AddedAt:    time.Now(),
	}

	r.mu.Lock()
	_, replaced := r.handles[name]
	r.handles[name] = h
	r.mu.Unlock()

	action := "added"
	if replaced {
		action = "replaced"
	}
	r.publish(Event{Layer: name, Action: action, Generation: gen})
	return h
}

// Remove drops the layer's handle. It reports whether one was present.
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	h, ok := r.handles[name]
	delete(r.handles, name)
	r.mu.Unlock()

	if ok {
		r.publish(Event{Layer: name, Action: "removed", Generation: h.Generation})
	}
	return ok
}

// Get returns the layer's handle.
func (r *Registry) Get(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// Has reports whether the layer is rendered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Count returns the number of rendered instances of a layer: 0 or 1.
func (r *Registry) Count(name string) int {
	if r.Has(name) {
		return 1
	}
	return 0
}

// Snapshot returns a consistent copy of all handles.
func (r *Registry) Snapshot() map[string]Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Handle, len(r.handles))
	for k, v := range r.handles {
		out[k] = v
	}
	return out
}

// Names returns the rendered layer names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.handles))
	for k := range r.handles {
		names = append(names, k)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (r *Registry) publish(e Event) {
	if r.bus != nil {
		r.bus.Publish(e)
	}
}
