package visibility

import (
	"maps"
	"slices"
	"sync"
)

// Registry maps type names to Types.
//
// Entries are only added or replaced, never removed. Helpers read it when they
// recurse into complex properties, so a referenced type only has to be
// registered before the first sanitizer call that reaches it.
type Registry struct {
	mu    sync.RWMutex
	types map[string]*Type
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Register stores t under t.Name. A later registration under the same name wins.
func (r *Registry) Register(t *Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[t.Name] = t
}

// Define creates a Type bound to this registry and registers it.
func (r *Registry) Define(name string, desc *Description, opts TypeOptions) *Type {
	t := NewType(name, desc, r, opts)
	r.Register(t)
	return t
}

// Lookup returns the Type registered under name. Safe on a nil Registry.
func (r *Registry) Lookup(name string) (*Type, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.types))
}

// Len returns the number of registered types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
