package chain

import (
	"sync"

	"github.com/google/uuid"
)

// keyMutex serializes operations on the same session id while letting
// operations on different ids proceed in parallel — the per-id
// linearizability / cross-id concurrency split required by spec.md §5.
// It formalizes the single bare package-level map the teacher's router
// layer uses for the same purpose (backtester-api/router/handler.go's
// `playgrounds` map implicitly serializes nothing; this type gives the
// façade an explicit critical section per id).
type keyMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[uuid.UUID]*sync.Mutex)}
}

func (k *keyMutex) lock(id uuid.UUID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sync.Mutex{}
		k.locks[id] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// forget drops the per-id lock once a session is deleted, so the
// striping map doesn't grow without bound across a long-lived process.
func (k *keyMutex) forget(id uuid.UUID) {
	k.mu.Lock()
	delete(k.locks, id)
	k.mu.Unlock()
}
