package service

import "sync"

// entityLocks serializes operations per entity key: one logical operation
// per order, per (investor, restaurant) pair, per credit line, or per
// invoice at a time. Mutexes are kept for the process lifetime; the map
// grows with the number of distinct entities, not with request volume.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newEntityLocks() *entityLocks {
	return &entityLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the entity's mutex and returns the matching unlock.
func (l *entityLocks) acquire(key string) func() {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
