package idempotency

import (
	"context"
	"strings"
	"sync"
	"time"
)

// LocalStore is an in-process IdempotencyStore for single-instance deployments
// that run without redis.
type LocalStore struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
}

func NewLocalStore() *LocalStore {
	return &LocalStore{now: time.Now, entries: make(map[string]time.Time)}
}

func (s *LocalStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expires, ok := s.entries[key]; ok && (expires.IsZero() || now.Before(expires)) {
		return false, nil
	}
	var expires time.Time
	if ttl > 0 {
		expires = now.Add(ttl)
	}
	s.entries[key] = expires
	return true, nil
}

func (s *LocalStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

func (s *LocalStore) IdempotencyKey(scope, id string) string {
	return strings.Join([]string{"at", "idempotency", scope, id}, ":")
}
