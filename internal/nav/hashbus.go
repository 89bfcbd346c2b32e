// Package nav implements the navigation controller: view transitions over
// the document store, hash synchronization, and deep-link reconciliation.
package nav

import "sync"

// HashBus abstracts the external hash/URL cell the controller synchronizes
// with. Implementations deliver external edits back through
// Controller.OnHashChange.
type HashBus interface {
	Current() string
	Set(value string)
}

// MemoryHashBus is a process-local HashBus for headless hosts and tests.
type MemoryHashBus struct {
	mu    sync.Mutex
	value string
}

// NewMemoryHashBus returns an empty in-memory hash cell.
func NewMemoryHashBus() *MemoryHashBus {
	return &MemoryHashBus{}
}

// Current returns the stored hash value.
func (b *MemoryHashBus) Current() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.value
}

// Set stores a new hash value.
func (b *MemoryHashBus) Set(value string) {
	b.mu.Lock()
	b.value = value
	b.mu.Unlock()
}

var _ HashBus = (*MemoryHashBus)(nil)
