// Package mutex provides a raw mutual-exclusion primitive and a separate
// signaling construct that can be layered on top of it.
//
// A Mutex and a Signal never share an underlying lock. Code that needs to
// announce "I now hold the mutex" to another goroutine uses a Signal next to
// the Mutex; waiting on the Signal therefore can never deadlock against
// acquiring the Mutex.
package mutex

import (
	"errors"
	"sync"
	"sync/atomic"
)

// ErrDeleted is the panic value raised when a deleted Mutex is used.
var ErrDeleted = errors.New("mutex: use of deleted mutex")

// Mutex is an explicitly created and destroyed lock.
// It is not reentrant and has no timeout or cancellation.
type Mutex struct {
	mu      sync.Mutex
	held    atomic.Bool
	deleted atomic.Bool
}

// Make returns a new, unlocked mutex.
// It returns nil only if the lock state cannot be allocated.
func Make() *Mutex {
	return &Mutex{}
}

// Lock blocks until the calling goroutine exclusively holds m.
func (m *Mutex) Lock() {
	m.check()
	m.mu.Lock()
	m.held.Store(true)
}

// Unlock releases m. Unlocking a mutex the caller does not hold is not
// validated.
func (m *Mutex) Unlock() {
	m.check()
	m.held.Store(false)
	m.mu.Unlock()
}

// Locked reports whether some goroutine currently holds m.
// The answer may be stale by the time the caller acts on it.
func (m *Mutex) Locked() bool {
	return m.held.Load()
}

// Delete releases m. Any later call on m panics with ErrDeleted.
func (m *Mutex) Delete() {
	m.deleted.Store(true)
}

func (m *Mutex) check() {
	if m.deleted.Load() {
		panic(ErrDeleted)
	}
}

// Signal lets one goroutine announce an event to goroutines waiting for it.
// It is built on its own lock and condition variable, independent of any
// Mutex it is paired with.
type Signal struct {
	mu    sync.Mutex
	cond  *sync.Cond
	fired bool
}

// NewSignal returns a Signal that has not fired.
func NewSignal() *Signal {
	s := &Signal{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Notify marks the signal as fired and wakes every waiter.
func (s *Signal) Notify() {
	s.mu.Lock()
	s.fired = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Wait blocks until Notify has been called at least once since the last Reset.
func (s *Signal) Wait() {
	s.mu.Lock()
	for !s.fired {
		s.cond.Wait()
	}
	s.mu.Unlock()
}

// Reset clears the fired state so the signal can be reused.
func (s *Signal) Reset() {
	s.mu.Lock()
	s.fired = false
	s.mu.Unlock()
}
