package proxy

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDuplicateFilter reports a filter name registered twice.
	ErrDuplicateFilter = errors.New("proxy: duplicate filter")
	// ErrInvalidFilter reports a filter without a name or without a func.
	ErrInvalidFilter = errors.New("proxy: invalid filter")
)

// Filter narrows a list of entities. Filters drop entries; they never
// reorder the ones they keep.
type Filter[E any] func(entities []E) []E

// Registry stores named filters. Names are case-insensitive.
type Registry[E any] struct {
	mu      sync.RWMutex
	filters map[string]Filter[E]
}

// NewRegistry constructs an empty registry.
func NewRegistry[E any]() *Registry[E] {
	return &Registry[E]{filters: make(map[string]Filter[E])}
}

// Register stores filter under name guarding against duplicates.
func (r *Registry[E]) Register(name string, filter Filter[E]) error {
	if filter == nil {
		return fmt.Errorf("%w: filter %q is nil", ErrInvalidFilter, name)
	}
	if name == "" {
		return fmt.Errorf("%w: filter name must not be empty", ErrInvalidFilter)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filters == nil {
		r.filters = make(map[string]Filter[E])
	}
	key := strings.ToLower(name)
	if _, exists := r.filters[key]; exists {
		return fmt.Errorf("%w: %q already registered", ErrDuplicateFilter, name)
	}
	r.filters[key] = filter
	return nil
}

// MustRegister is Register for package-level wiring; it panics on error.
func (r *Registry[E]) MustRegister(name string, filter Filter[E]) *Registry[E] {
	if err := r.Register(name, filter); err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the filter registered for name.
func (r *Registry[E]) Lookup(name string) (Filter[E], bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	filter, ok := r.filters[strings.ToLower(name)]
	return filter, ok
}

// Clone returns a shallow copy of the registry.
func (r *Registry[E]) Clone() *Registry[E] {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &Registry[E]{filters: make(map[string]Filter[E], len(r.filters))}
	for name, filter := range r.filters {
		clone.filters[name] = filter
	}
	return clone
}

// Names returns registered filter names sorted alphabetically.
func (r *Registry[E]) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
