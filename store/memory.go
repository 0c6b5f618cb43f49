package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the namespace in process memory. A single mutex
// serializes every operation, so Update is atomic with respect to all other
// access. It is the default backend for tests and single-process use.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	cp := make([]byte, len(value))
	copy(cp, value)
	return cp, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, key string, fn UpdateFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.data[key]
	var cur []byte
	if ok {
		cur = make([]byte, len(old))
		copy(cur, old)
	}

	next, err := fn(cur)
	if err != nil {
		return err
	}

	m.data[key] = next
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
