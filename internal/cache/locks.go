package cache

import "sync"

// keyLocks serializes operations per hashed key. Locks are reference counted
// and dropped once no goroutine holds or waits on them.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(hash string) func() {
	k.mu.Lock()
	l, ok := k.locks[hash]
	if !ok {
		l = &keyLock{}
		k.locks[hash] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, hash)
		}
		k.mu.Unlock()
	}
}
