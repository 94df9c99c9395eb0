package service

import "sync"

// Locker provides advisory mutual exclusion keyed by admission or pending id.
// Mutating workflow operations (finalize, apply-edit, submit-to-admin,
// approve) run under the id's lock to prevent lost updates and duplicate
// artifact generation when requests for the same record interleave.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entryLock
}

type entryLock struct {
	mu   sync.Mutex
	refs int
}

// NewLocker constructs an empty locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*entryLock)}
}

// Lock acquires the lock for the key, blocking until available.
func (l *Locker) Lock(key string) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &entryLock{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the lock, dropping the entry once no goroutine waits on it.
func (l *Locker) Unlock(key string) {
	l.mu.Lock()
	e, ok := l.locks[key]
	if ok {
		e.refs--
		if e.refs <= 0 {
			delete(l.locks, key)
		}
	}
	l.mu.Unlock()

	if ok {
		e.mu.Unlock()
	}
}
