package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("storage: key not found")

// ErrDecode wraps values that exist but cannot be decoded by GetJSON.
var ErrDecode = errors.New("storage: undecodable value")

// Persisted checkout keys.
const (
	KeyCartItems        = "cart_items"
	KeyCheckoutCliente  = "checkout_cliente"
	KeyCheckoutDraft    = "checkout_draft"
	KeyLastOrderSummary = "lastOrderSummary"
	KeyPendingCardOrder = "pending_card_order"

	DistanceKeyPrefix = "delivery_distance:"
)

// SharedNamespace holds entries that are not tied to a checkout session.
const SharedNamespace = "shared"

// Store is the key-value surface one checkout session persists through.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Backend keeps entries for many namespaces, typically one per session.
// A zero ttl means the entry never expires.
type Backend interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Remove(ctx context.Context, namespace, key string) error
	Ping(ctx context.Context) error
}

// Purger is implemented by backends that need expired entries removed explicitly.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

type scoped struct {
	backend   Backend
	namespace string
	ttl       time.Duration
}

// Scope binds a backend to one namespace. Every write refreshes the ttl.
func Scope(backend Backend, namespace string, ttl time.Duration) Store {
	return &scoped{backend: backend, namespace: namespace, ttl: ttl}
}

func (s *scoped) Get(ctx context.Context, key string) ([]byte, error) {
	return s.backend.Get(ctx, s.namespace, key)
}

func (s *scoped) Set(ctx context.Context, key string, value []byte) error {
	return s.backend.Set(ctx, s.namespace, key, value, s.ttl)
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, s.namespace, key)
}

// GetJSON decodes the value at key into dest. It reports false when the key is missing.
func GetJSON(ctx context.Context, store Store, key string, dest any) (bool, error) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecode, key, err)
	}
	return true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, store Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return store.Set(ctx, key, raw)
}
