package persist

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// MemoryStore keeps entries in process memory. Entries are lost when the
// process exits.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *MemoryStore) Load(_ context.Context, keys ...string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, 0, len(keys))
	for _, k := range keys {
		v, ok := m.entries[k]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, k)
		}
		out = append(out, Entry{Key: k, Value: slices.Clone(v)})
	}
	return out, nil
}

func (m *MemoryStore) Save(_ context.Context, entries ...Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range entries {
		m.entries[e.Key] = slices.Clone(e.Value)
	}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}
