package store

import (
	"context"
	"strings"
	"sync"
)

// MemoryBackend 进程内存后端，用于开发环境与持久化后端不可用时的回退
type MemoryBackend struct {
	mu      sync.RWMutex
	entries map[string][]Entry
}

// NewMemoryBackend 创建内存后端
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{entries: make(map[string][]Entry)}
}

// Name implements Backend.
func (m *MemoryBackend) Name() string { return "memory" }

// Insert implements Backend.
func (m *MemoryBackend) Insert(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[entry.Key] = append(m.entries[entry.Key], entry)
	return nil
}

// Find implements Backend.
func (m *MemoryBackend) Find(_ context.Context, key string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.entries[key]
	out := make([]Entry, len(src))
	copy(out, src)
	return out, nil
}

// Last implements Backend.
func (m *MemoryBackend) Last(_ context.Context, key string) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.entries[key]
	if len(src) == 0 {
		return Entry{}, false, nil
	}
	return src[len(src)-1], true, nil
}

// Keys implements Backend.
func (m *MemoryBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries))
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// Ping implements Backend.
func (m *MemoryBackend) Ping(context.Context) error { return nil }

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
