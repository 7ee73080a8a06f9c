// Package state persists the small pieces of local state that must survive
// restarts: the notification feed, the daily expiration check marker and the
// pending toast handoff.
package state

import (
	"maps"
	"sync"
)

// Keys of the persisted state entries
const (
	KeyFeed      = "notifications.feed"
	KeyLastCheck = "expiration.last_check"
	KeyHandoff   = "toast.pending"
)

// Store is a key/value store. Implementations serialize mutations.
type Store interface {
	// Get returns the value stored under key. found is false when the key
	// has never been written or was deleted.
	Get(key string) (value []byte, found bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
	Close() error
}

// MemoryStore is a Store kept in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Get implements Store
func (m *MemoryStore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set implements Store
func (m *MemoryStore) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

// Delete implements Store
func (m *MemoryStore) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Close implements Store
func (m *MemoryStore) Close() error {
	return nil
}

// Snapshot returns a copy of every entry
func (m *MemoryStore) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.entries)
}
