// Package lock provides keyed locks used to serialize find-or-create of
// conversations per (customer, channel) pair. The check-then-insert in the
// conversation service is not atomic; without a lock, two concurrent inbound
// events for the same pair can each create an active conversation.
package lock

import (
	"context"
	"sync"
)

// KeyedLocker serializes critical sections by key
type KeyedLocker interface {
	// Lock blocks until the lock for key is held or ctx is done.
	// It returns an unlock function on success.
	Lock(ctx context.Context, key string) (func(), error)
}

// KeyedMutex is an in-process KeyedLocker backed by a mutex per key.
// Sufficient for single-instance deployments; multi-instance deployments
// should use RedisLocker instead.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex creates a new in-process keyed mutex
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Lock acquires the mutex for key. The context is checked before blocking;
// once waiting on the mutex the call does not observe cancellation.
func (m *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	e, ok := m.locks[key]
	if !ok {
		e = &entry{}
		m.locks[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	unlock := func() {
		e.mu.Unlock()

		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.locks, key)
		}
		m.mu.Unlock()
	}

	return unlock, nil
}
