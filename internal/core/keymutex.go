// DamifeZion | 2026
// keymutex.go

package core

import (
	"sync"
)

// KeyedMutex serializes operations per key. Capacity checks (session
// and profile counts) are read-then-write sequences against the store;
// holding the owning user's lock across the sequence keeps two
// concurrent requests from both passing the same check.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock blocks until the key's lock is held and returns the unlock
// function. Entries are reference counted and removed once the last
// holder releases, so the map does not grow with the user population.
func (m *KeyedMutex) Lock(key string) func() {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}
}
