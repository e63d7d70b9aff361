package stream

import (
	"sync"
)

// Handle is a reference-counted backend resource such as a pooled connection.
// The creator holds the first reference; every Bound sequence retains its own
// and the release function runs once, when the last reference is dropped.
type Handle[R any] struct {
	value   R
	release func(R) error

	mu   sync.Mutex
	refs int
}

// NewHandle wraps value with one reference owned by the caller. release may be
// nil for resources that need no cleanup, such as a shared pool.
func NewHandle[R any](value R, release func(R) error) *Handle[R] {
	return &Handle[R]{value: value, release: release, refs: 1}
}

// Value returns the wrapped resource.
func (h *Handle[R]) Value() R {
	return h.value
}

// Retain adds a reference. Retaining a released handle panics: the resource
// is already gone and anything bound to it would read freed state.
func (h *Handle[R]) Retain() *Handle[R] {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.refs == 0 {
		panic("stream: retain of released handle")
	}
	h.refs++
	return h
}

// Release drops a reference and runs the release function when none remain.
// Releasing an already released handle is a no-op.
func (h *Handle[R]) Release() error {
	h.mu.Lock()
	if h.refs == 0 {
		h.mu.Unlock()
		return nil
	}
	h.refs--
	last := h.refs == 0
	h.mu.Unlock()

	if last && h.release != nil {
		return h.release(h.value)
	}
	return nil
}

// Refs returns the number of live references.
func (h *Handle[R]) Refs() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refs
}
