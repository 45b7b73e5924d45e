package state

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs an in-process Store implementation for tests and
// development. Values do not survive a restart.
func NewMemoryStore() Store {
	return &memoryStore{values: make(map[string]string)}
}

func composite(app, user, key string) string {
	return app + "\x00" + user + "\x00" + key
}

// Get returns the stored value, or the empty string when absent.
func (m *memoryStore) Get(_ context.Context, app, user, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[composite(app, user, key)], nil
}

// Save stores the value, overwriting any previous one.
func (m *memoryStore) Save(_ context.Context, app, user, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value == "" {
		delete(m.values, composite(app, user, key))
		return nil
	}
	m.values[composite(app, user, key)] = value
	return nil
}

// Remove deletes the value if present.
func (m *memoryStore) Remove(_ context.Context, app, user, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, composite(app, user, key))
	return nil
}
