// Package shared provides a reference-counted cell with single-writer access
// for native objects that several host references mutate after construction.
//
// The cell does not serialize callers. A borrow that would overlap an active
// one fails with ErrAlreadyBorrowed; hosts are expected to order their calls.
package shared

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrAlreadyBorrowed is returned when a borrow overlaps an active one.
	ErrAlreadyBorrowed = errors.New("shared value already borrowed")

	// ErrDropped is returned when borrowing through a released reference.
	ErrDropped = errors.New("shared reference released")
)

type cell[T any] struct {
	mu      sync.RWMutex
	value   T
	refs    atomic.Int64
	release func(*T)
}

// Ref is one strong reference to a shared cell.
type Ref[T any] struct {
	cell    *cell[T]
	dropped atomic.Bool
}

// New wraps v in a cell and returns its first reference. release, if not nil,
// runs once when the last reference is released.
func New[T any](v T, release func(*T)) *Ref[T] {
	c := &cell[T]{value: v, release: release}
	c.refs.Store(1)
	return &Ref[T]{cell: c}
}

// Clone returns a new reference to the same cell. A cell whose count has
// reached zero is never revived.
func (r *Ref[T]) Clone() (*Ref[T], error) {
	if r.dropped.Load() {
		return nil, ErrDropped
	}
	for {
		n := r.cell.refs.Load()
		if n == 0 {
			return nil, ErrDropped
		}
		if r.cell.refs.CompareAndSwap(n, n+1) {
			return &Ref[T]{cell: r.cell}, nil
		}
	}
}

// Count returns the number of live references.
func (r *Ref[T]) Count() int64 {
	return r.cell.refs.Load()
}

// Release drops this reference. Repeated calls on the same Ref are no-ops.
func (r *Ref[T]) Release() {
	if r.dropped.Swap(true) {
		return
	}
	if r.cell.refs.Add(-1) != 0 {
		return
	}
	if r.cell.release != nil {
		r.cell.mu.Lock()
		r.cell.release(&r.cell.value)
		r.cell.mu.Unlock()
	}
}

// Borrow runs fn with shared read access for the duration of the call.
func (r *Ref[T]) Borrow(fn func(*T) error) error {
	if r.dropped.Load() {
		return ErrDropped
	}
	if !r.cell.mu.TryRLock() {
		return ErrAlreadyBorrowed
	}
	defer r.cell.mu.RUnlock()
	return fn(&r.cell.value)
}

// BorrowMut runs fn with exclusive access for the duration of the call.
func (r *Ref[T]) BorrowMut(fn func(*T) error) error {
	if r.dropped.Load() {
		return ErrDropped
	}
	if !r.cell.mu.TryLock() {
		return ErrAlreadyBorrowed
	}
	defer r.cell.mu.Unlock()
	return fn(&r.cell.value)
}

// Same reports whether two references share one cell.
func (r *Ref[T]) Same(o *Ref[T]) bool {
	return r.cell == o.cell
}
