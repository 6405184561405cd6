package delivery

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/annetom/pizzaria-checkout/pkg/maps"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
)

// DistanceCache remembers Distance Matrix results per destination.
type DistanceCache struct {
	store    storage.Store
	inflight singleflight.Group
}

// NewDistanceCache wraps a store, usually storage.Scope(backend, storage.SharedNamespace, ttl).
func NewDistanceCache(store storage.Store) *DistanceCache {
	if store == nil {
		return nil
	}
	return &DistanceCache{store: store}
}

func (c *DistanceCache) Get(ctx context.Context, destination string) (*maps.Distance, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	var dist maps.Distance
	found, err := storage.GetJSON(ctx, c.store, cacheKey(destination), &dist)
	if err != nil || !found {
		return nil, false, err
	}
	return &dist, true, nil
}

func (c *DistanceCache) Put(ctx context.Context, destination string, dist *maps.Distance) error {
	if c == nil || dist == nil {
		return nil
	}
	return storage.SetJSON(ctx, c.store, cacheKey(destination), dist)
}

// Fetch runs lookup once per destination at a time. Sessions asking for the
// same address concurrently share the result.
func (c *DistanceCache) Fetch(ctx context.Context, destination string, lookup func(context.Context) (*maps.Distance, error)) (*maps.Distance, error) {
	if c == nil {
		return lookup(ctx)
	}
	v, err, _ := c.inflight.Do(cacheKey(destination), func() (any, error) {
		return lookup(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*maps.Distance), nil
}

func cacheKey(destination string) string {
	return storage.DistanceKeyPrefix + FoldName(destination)
}
