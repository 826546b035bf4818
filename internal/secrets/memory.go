package secrets

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/docvault/internal/common"
)

// MemoryStore keeps secrets in process memory. Values are copied on the way
// in and out so callers may wipe their buffers.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[name]
	if !ok {
		return nil, common.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Set(_ context.Context, name string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[name] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if v, ok := m.data[name]; ok {
		common.WipeByteArray(v)
		delete(m.data, name)
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range m.data {
		common.WipeByteArray(v)
		delete(m.data, k)
	}
	return nil
}

func (m *MemoryStore) Close() error { return nil }
