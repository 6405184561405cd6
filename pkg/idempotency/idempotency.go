package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/redis"
)

// Manager guards one-at-a-time operations using SETNX with a TTL.
// Keys follow the `at:idempotency:<scope>:<id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

// NewManager builds a guard whose claims expire after ttl.
func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{
		store: store,
		ttl:   ttl,
	}, nil
}

// Acquire claims scope/id. It returns false when another caller holds the claim.
func (m *Manager) Acquire(ctx context.Context, scope, id string) (bool, error) {
	key, err := m.key(scope, id)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, fmt.Errorf("claiming %s: %w", key, err)
	}
	return set, nil
}

// Release drops the claim so the operation can run again.
func (m *Manager) Release(ctx context.Context, scope, id string) error {
	key, err := m.key(scope, id)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

func (m *Manager) key(scope, id string) (string, error) {
	if scope == "" {
		return "", errors.New("scope is required")
	}
	if id == "" {
		return "", errors.New("id is required")
	}
	return m.store.IdempotencyKey(scope, id), nil
}
