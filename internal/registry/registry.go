// Package registry holds the live Go values a server exposes for
// introspection, keyed by the module name clients index and search under.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a name -> live root value table. Safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	roots map[string]any
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{roots: make(map[string]any)}
}

// Register binds a root value under name, replacing any previous binding.
// Empty names and nil roots are rejected.
func (r *Registry) Register(name string, root any) error {
	if name == "" {
		return fmt.Errorf("registering root: name is empty")
	}
	if root == nil {
		return fmt.Errorf("registering root %q: value is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roots[name] = root
	return nil
}

// Lookup returns the root registered under name.
func (r *Registry) Lookup(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	root, ok := r.roots[name]
	return root, ok
}

// Names lists the registered root names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.roots))
	for name := range r.roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
