package handle

import (
	"fmt"
	"sync"
)

// EventType distinguishes table lifecycle notifications.
type EventType uint8

const (
	EventInserted EventType = iota
	EventDropped
)

// Event describes a handle entering or leaving a table.
type Event struct {
	Type EventType
	ID   uint64
	Kind string
}

// Table issues numeric tokens for handles so hosts that cannot hold Go
// pointers can still reference them. Token 0 is never issued.
// Table is safe for concurrent use.
type Table struct {
	mu      sync.RWMutex
	entries map[uint64]Owned
	next    uint64
	closed  bool

	obsMu     sync.RWMutex
	observers []func(Event)
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[uint64]Owned),
	}
}

// Insert stores h and returns its token.
func (t *Table) Insert(h Owned) (uint64, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return 0, ErrTableClosed
	}
	t.next++
	id := t.next
	t.entries[id] = h
	t.mu.Unlock()

	t.notify(Event{Type: EventInserted, ID: id, Kind: h.Kind()})
	return id, nil
}

// Get returns the handle behind id.
func (t *Table) Get(id uint64) (Owned, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.entries[id]
	return h, ok
}

// Drop removes id from the table and releases its handle. It reports false
// when id was not present.
func (t *Table) Drop(id uint64) bool {
	t.mu.Lock()
	h, ok := t.entries[id]
	if ok {
		delete(t.entries, id)
	}
	t.mu.Unlock()

	if !ok {
		return false
	}
	h.Release()
	t.notify(Event{Type: EventDropped, ID: id, Kind: h.Kind()})
	return true
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Subscribe registers fn for insert/drop notifications.
func (t *Table) Subscribe(fn func(Event)) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, fn)
}

// Close releases every handle and stops accepting inserts.
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	entries := t.entries
	t.entries = make(map[uint64]Owned)
	t.mu.Unlock()

	for id, h := range entries {
		h.Release()
		t.notify(Event{Type: EventDropped, ID: id, Kind: h.Kind()})
	}
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, fn := range t.observers {
		fn(e)
	}
}

// Lookup resolves id to a typed handle of the given kind.
func Lookup[T any](t *Table, id uint64, kind string) (*Handle[T], error) {
	owned, ok := t.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if owned.Kind() != kind {
		return nil, fmt.Errorf("%w: token %d is %q, want %q", ErrKindMismatch, id, owned.Kind(), kind)
	}
	h, ok := owned.(*Handle[T])
	if !ok {
		return nil, fmt.Errorf("%w: token %d has unexpected type %T", ErrKindMismatch, id, owned)
	}
	return h, nil
}
