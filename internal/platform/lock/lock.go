// Package lock provides per-key mutual exclusion with a bounded wait.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when the lock could not be acquired within the wait
// budget.
var ErrTimeout = errors.New("lock wait timed out")

// Release gives the lock back. Calling it more than once is a no-op.
type Release func()

type Locker interface {
	// Acquire blocks until key is held, wait elapses (ErrTimeout) or ctx is
	// done. wait <= 0 means a single non-blocking attempt.
	Acquire(ctx context.Context, key string, wait time.Duration) (Release, error)
}

// KeyedMutex is an in-process Locker. Waiters on one key are admitted in
// arrival order. Idle keys are freed.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

func (m *KeyedMutex) Acquire(ctx context.Context, key string, wait time.Duration) (Release, error) {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	if wait <= 0 {
		select {
		case l.ch <- struct{}{}:
			return m.releaser(key, l), nil
		default:
			m.unref(key, l)
			return nil, ErrTimeout
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case l.ch <- struct{}{}:
		return m.releaser(key, l), nil
	case <-timer.C:
		m.unref(key, l)
		return nil, ErrTimeout
	case <-ctx.Done():
		m.unref(key, l)
		return nil, ctx.Err()
	}
}

func (m *KeyedMutex) releaser(key string, l *keyLock) Release {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-l.ch
			m.unref(key, l)
		})
	}
}

func (m *KeyedMutex) unref(key string, l *keyLock) {
	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}

// refs reports holders plus waiters for key.
func (m *KeyedMutex) refs(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.locks[key]; ok {
		return l.refs
	}
	return 0
}
