package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultMaxObjectBytes caps the size of a single cached asset.
const DefaultMaxObjectBytes int64 = 50 * 1024 * 1024

type entry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryStore is an in-process Store backed by a map.
type MemoryStore struct {
	mu             sync.RWMutex
	entries        map[string]entry
	maxObjectBytes int64

	now func() time.Time
}

// NewMemoryStore creates a MemoryStore. maxObjectBytes <= 0 selects
// DefaultMaxObjectBytes.
func NewMemoryStore(maxObjectBytes int64) *MemoryStore {
	if maxObjectBytes <= 0 {
		maxObjectBytes = DefaultMaxObjectBytes
	}
	return &MemoryStore{
		entries:        make(map[string]entry),
		maxObjectBytes: maxObjectBytes,
		now:            time.Now,
	}
}

// Get returns the bytes stored under key. An entry past its expiry is
// treated as absent and removed.
func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false
	}
	return e.body, true
}

// Set stores val under key for ttl.
func (m *MemoryStore) Set(_ context.Context, key string, val []byte, ttl time.Duration) error {
	if int64(len(val)) > m.maxObjectBytes {
		return errors.New("cache: entry exceeds max object bytes")
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = m.now().Add(ttl)
	}
	m.mu.Lock()
	m.entries[key] = entry{body: val, expiresAt: expiresAt}
	m.mu.Unlock()
	return nil
}
