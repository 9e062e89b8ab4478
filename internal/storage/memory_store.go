package storage

import (
	"sync"
	"time"
)

// memoryStore keeps brewery keys in process memory. Nothing survives a restart.
type memoryStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func newMemoryStore(opts Options) *memoryStore {
	return &memoryStore{
		expires: make(map[string]time.Time),
		ttl:     opts.TTL,
		now:     time.Now,
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) SeenBrewery(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.expires[key]
	if !ok {
		return false, nil
	}
	if !expiry.After(m.now()) {
		delete(m.expires, key)
		return false, nil
	}
	return true, nil
}

func (m *memoryStore) MarkBrewery(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expires[key] = m.now().Add(m.ttl)
	return nil
}
