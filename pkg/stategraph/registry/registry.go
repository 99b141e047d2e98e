package registry

import (
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry maps names to values. Safe for concurrent use.
type Registry[V any] struct {
	mu      sync.RWMutex
	entries map[string]V
	aliases map[string]string
}

// New creates an empty registry.
func New[V any]() *Registry[V] {
	return &Registry[V]{
		entries: make(map[string]V),
		aliases: make(map[string]string),
	}
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces the value for name. Empty names panic; they
// are always a programming error.
func (r *Registry[V]) Register(name string, value V) {
	key := normalize(name)
	if key == "" {
		panic("registry: empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Alias makes alias resolve to target. target need not be registered yet.
func (r *Registry[V]) Alias(alias, target string) {
	a, t := normalize(alias), normalize(target)
	if a == "" || t == "" {
		panic("registry: empty alias")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.aliases[a] = t
}

// Get returns the value for name or an alias of it.
func (r *Registry[V]) Get(name string) (V, bool) {
	key := normalize(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if target, ok := r.aliases[key]; ok {
		key = target
	}
	v, ok := r.entries[key]
	return v, ok
}

// Lookup is Get with a descriptive error.
func (r *Registry[V]) Lookup(name string) (V, error) {
	v, ok := r.Get(name)
	if !ok {
		return v, &UnknownError{Name: name, Known: r.Names()}
	}
	return v, nil
}

// Has reports whether name resolves to a value.
func (r *Registry[V]) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Names returns registered names (not aliases), sorted.
func (r *Registry[V]) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// UnknownError reports a lookup miss.
type UnknownError struct {
	Name  string
	Known []string
}

func (e *UnknownError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown name %q (nothing registered)", e.Name)
	}
	return fmt.Sprintf("unknown name %q (known: %s)", e.Name, strings.Join(e.Known, ", "))
}
