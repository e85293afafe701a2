// Package indexlock serializes destructive index operations against
// concurrent readers. A reset takes the exclusive lock for its index
// name while queries and incremental ingests share the read side.
package indexlock

import "sync"

// Registry hands out one RWMutex per index name.
type Registry struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

// New creates an empty lock registry.
func New() *Registry {
	return &Registry{locks: make(map[string]*sync.RWMutex)}
}

func (r *Registry) get(name string) *sync.RWMutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.locks[name]
	if !ok {
		l = &sync.RWMutex{}
		r.locks[name] = l
	}
	return l
}

// Lock acquires the exclusive lock for name.
func (r *Registry) Lock(name string) {
	r.get(name).Lock()
}

// Unlock releases the exclusive lock for name.
func (r *Registry) Unlock(name string) {
	r.get(name).Unlock()
}

// RLock acquires the shared lock for name.
func (r *Registry) RLock(name string) {
	r.get(name).RLock()
}

// RUnlock releases the shared lock for name.
func (r *Registry) RUnlock(name string) {
	r.get(name).RUnlock()
}
