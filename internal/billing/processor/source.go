package processor

import "sync/atomic"

// Source hands out the current registry snapshot. Provider-config reloads
// swap in a freshly built registry; in-flight operations keep the snapshot
// they started with.
type Source struct {
	current atomic.Pointer[Registry]
}

// NewSource builds a source seeded with an initial registry.
func NewSource(initial *Registry) *Source {
	source := &Source{}
	source.current.Store(initial)
	return source
}

// Current returns the active registry snapshot.
func (s *Source) Current() *Registry {
	return s.current.Load()
}

// Swap replaces the active registry.
func (s *Source) Swap(registry *Registry) {
	if registry == nil {
		return
	}
	s.current.Store(registry)
}
