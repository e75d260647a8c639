package handle

import (
	"errors"
	"runtime"
	"sync"
)

var (
	// ErrReleased is the panic value raised by Value on a released handle.
	ErrReleased = errors.New("handle already released")

	// ErrNotFound is returned when a token does not reference a live handle.
	ErrNotFound = errors.New("handle not found")

	// ErrKindMismatch is returned when a token references a handle of another kind.
	ErrKindMismatch = errors.New("handle kind mismatch")

	// ErrTableClosed is returned by Insert after Close.
	ErrTableClosed = errors.New("handle table closed")
)

// Owned is the type-erased view of a Handle stored in a Table.
type Owned interface {
	Kind() string
	Release()
	Released() bool
}

// owner carries the value and its release function. It is kept apart from
// Handle so the runtime cleanup can reach it without keeping the Handle alive.
type owner[T any] struct {
	mu       sync.Mutex
	value    T
	release  func(T)
	released bool
}

func (o *owner[T]) drop() bool {
	o.mu.Lock()
	if o.released {
		o.mu.Unlock()
		return false
	}
	o.released = true
	v := o.value
	var zero T
	o.value = zero
	release := o.release
	o.release = nil
	o.mu.Unlock()

	if release != nil {
		release(v)
	}
	return true
}

// Handle owns a single native value of type T.
type Handle[T any] struct {
	kind    string
	owner   *owner[T]
	cleanup runtime.Cleanup
}

// New wraps v in a handle of the given kind. release may be nil for values
// that hold no resources. New never fails.
func New[T any](kind string, v T, release func(T)) *Handle[T] {
	h := &Handle[T]{
		kind:  kind,
		owner: &owner[T]{value: v, release: release},
	}
	h.cleanup = runtime.AddCleanup(h, func(o *owner[T]) { o.drop() }, h.owner)
	return h
}

// Kind returns the kind name given at construction.
func (h *Handle[T]) Kind() string {
	return h.kind
}

// Value returns the owned value. It panics with ErrReleased after Release.
func (h *Handle[T]) Value() T {
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	if h.owner.released {
		panic(ErrReleased)
	}
	return h.owner.value
}

// Release runs the release function. Calls after the first are no-ops.
func (h *Handle[T]) Release() {
	if h.owner.drop() {
		h.cleanup.Stop()
	}
}

// Released reports whether the owned value has been released.
func (h *Handle[T]) Released() bool {
	h.owner.mu.Lock()
	defer h.owner.mu.Unlock()
	return h.owner.released
}
