// Package orglock provides per-organisation mutual exclusion so maintenance
// passes never interleave with an in-flight ingestion for the same tenant.
package orglock

import "sync"

// Keyed hands out one mutex per key. Locks for distinct keys are
// independent; mutexes are never released from the map, which is fine for
// the bounded number of organisations a single process serves.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty keyed lock set.
func New() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key, creating it on first use. The returned
// function releases it.
func (k *Keyed) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
