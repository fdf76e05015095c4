package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries for the lifetime of the process.
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string]Entry)}
}

func (m *MemoryBackend) Load(_ context.Context, key string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok {
		return Entry{}, ErrMiss
	}
	return e, nil
}

func (m *MemoryBackend) Save(_ context.Context, key string, e Entry, _ time.Duration) error {
	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) DeleteAll(context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]Entry)
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) Range(_ context.Context, fn func(key string, e Entry) bool) error {
	m.mu.RLock()
	snapshot := make(map[string]Entry, len(m.entries))
	for k, e := range m.entries {
		snapshot[k] = e
	}
	m.mu.RUnlock()
	for k, e := range snapshot {
		if !fn(k, e) {
			break
		}
	}
	return nil
}

func (m *MemoryBackend) Close() error { return nil }
