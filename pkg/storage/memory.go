package storage

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend keeps entries in process. State is lost on restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	now     func() time.Time
	entries map[string]map[string]memoryEntry
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		now:     time.Now,
		entries: make(map[string]map[string]memoryEntry),
	}
}

func (m *MemoryBackend) Get(_ context.Context, namespace, key string) ([]byte, error) {
	m.mu.RLock()
	entry, ok := m.entries[namespace][key]
	m.mu.RUnlock()
	if !ok || m.expired(entry) {
		return nil, ErrNotFound
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ns, ok := m.entries[namespace]
	if !ok {
		ns = make(map[string]memoryEntry)
		m.entries[namespace] = ns
	}
	ns[key] = entry
	return nil
}

func (m *MemoryBackend) Remove(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ns, ok := m.entries[namespace]; ok {
		delete(ns, key)
		if len(ns) == 0 {
			delete(m.entries, namespace)
		}
	}
	return nil
}

func (m *MemoryBackend) Ping(context.Context) error {
	return nil
}

// PurgeExpired drops every expired entry.
func (m *MemoryBackend) PurgeExpired(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var purged int64
	for namespace, ns := range m.entries {
		for key, entry := range ns {
			if m.expired(entry) {
				delete(ns, key)
				purged++
			}
		}
		if len(ns) == 0 {
			delete(m.entries, namespace)
		}
	}
	return purged, nil
}

func (m *MemoryBackend) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt)
}
