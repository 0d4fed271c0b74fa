// Package handles maps Go values to integer IDs that can travel through C
// memory.
//
// C code cannot hold Go pointers, so a value that a C callback must reach
// (such as a bridge handle behind an AVIOContext opaque pointer) is stored in
// a Table and the callback receives only its uintptr ID.
package handles

import (
	"sync"
)

// Table stores values of type T under unique non-zero IDs.
// The zero value is not usable; create tables with New.
//
// Thread-safe.
type Table[T any] struct {
	mu      sync.RWMutex
	entries map[uintptr]T
	nextID  uintptr
}

// New returns an empty table.
func New[T any]() *Table[T] {
	return &Table[T]{
		entries: make(map[uintptr]T),
		nextID:  1,
	}
}

// Register stores v and returns its ID. IDs are never reused within a table.
func (t *Table[T]) Register(v T) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextID
	t.nextID++
	t.entries[id] = v
	return id
}

// Lookup returns the value stored under id.
func (t *Table[T]) Lookup(id uintptr) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.entries[id]
	return v, ok
}

// Unregister removes id and returns the value it held.
func (t *Table[T]) Unregister(id uintptr) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[id]
	delete(t.entries, id)
	return v, ok
}

// Len returns the number of registered values.
// Useful for spotting leaked registrations in tests.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
