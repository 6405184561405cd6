package storage

import (
	"context"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/redis"
)

// redisKV is the slice of *redis.Client the backend needs.
type redisKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	SessionKey(sessionID, key string) string
}

// RedisBackend stores entries as plain redis strings with native expiry.
type RedisBackend struct {
	client redisKV
}

func NewRedisBackend(client redisKV) *RedisBackend {
	return &RedisBackend{client: client}
}

func (r *RedisBackend) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	value, err := r.client.Get(ctx, r.client.SessionKey(namespace, key))
	if redis.IsMiss(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

func (r *RedisBackend) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.client.SessionKey(namespace, key), value, ttl)
}

func (r *RedisBackend) Remove(ctx context.Context, namespace, key string) error {
	return r.client.Del(ctx, r.client.SessionKey(namespace, key))
}

func (r *RedisBackend) Ping(ctx context.Context) error {
	return r.client.Ping(ctx)
}
