package main

import (
	"context"
	"fmt"

	"github.com/annetom/pizzaria-checkout/pkg/config"
	"github.com/annetom/pizzaria-checkout/pkg/db"
	"github.com/annetom/pizzaria-checkout/pkg/idempotency"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/migrate"
	"github.com/annetom/pizzaria-checkout/pkg/redis"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
)

// sessionStorage is the storage backend selected by ANNETOM_STORAGE_DRIVER
// plus the store used for submit locks.
type sessionStorage struct {
	backend   storage.Backend
	lockStore redis.IdempotencyStore
	closers   []func() error
}

func (s *sessionStorage) Close(ctx context.Context, logg *logger.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logg.Error(ctx, "error closing storage", err)
		}
	}
}

func openStorage(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*sessionStorage, error) {
	out := &sessionStorage{}

	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		out.closers = append(out.closers, client.Close)
		out.backend = storage.NewRedisBackend(client)
		out.lockStore = client

	case config.StorageDriverSQL:
		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap database: %w", err)
		}
		out.closers = append(out.closers, client.Close)
		if err := migrate.MaybeAutoRun(ctx, cfg, logg, client); err != nil {
			out.Close(ctx, logg)
			return nil, fmt.Errorf("auto migrate: %w", err)
		}
		out.backend = storage.NewSQLBackend(client.DB())

	default:
		out.backend = storage.NewMemoryBackend()
	}

	// Redis is still preferred for submit locks when it is configured next
	// to a non-redis storage driver.
	if out.lockStore == nil && (cfg.Redis.URL != "" || cfg.Redis.Address != "") {
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Warn(logg.WithField(ctx, "error", err.Error()), "redis unavailable, using in-process submit locks")
		} else {
			out.closers = append(out.closers, client.Close)
			out.lockStore = client
		}
	}
	if out.lockStore == nil {
		out.lockStore = idempotency.NewLocalStore()
	}
	return out, nil
}
