package delivery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/maps"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	mu    sync.Mutex
	calls []string
	fn    func(ctx context.Context, destination string) (*maps.Distance, error)
}

func (s *stubLookup) DistanceMatrix(ctx context.Context, _ string, destination string) (*maps.Distance, error) {
	s.mu.Lock()
	s.calls = append(s.calls, destination)
	s.mu.Unlock()
	return s.fn(ctx, destination)
}

func (s *stubLookup) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestResolver(t *testing.T, lookup DistanceLookup, cache *DistanceCache) *Resolver {
	t.Helper()
	table, err := NewFeeTable(defaultBands(t))
	require.NoError(t, err)
	r, err := NewResolver(ResolverConfig{
		Lookup:      lookup,
		Origin:      "Pizzaria",
		Fees:        table,
		MaxRadiusKm: 15,
		Debounce:    20 * time.Millisecond,
		Timeout:     time.Second,
		Cache:       cache,
	})
	require.NoError(t, err)
	t.Cleanup(r.Stop)
	return r
}

func TestResolveReadyQuote(t *testing.T) {
	lookup := &stubLookup{fn: func(context.Context, string) (*maps.Distance, error) {
		return &maps.Distance{DistanceText: "2,5 km", DurationText: "9 min"}, nil
	}}
	r := newTestResolver(t, lookup, nil)

	q := r.Resolve(context.Background(), "Rua Voluntarios da Patria, Santana")
	require.Equal(t, enums.QuoteStatusReady, q.Status)
	require.NotNil(t, q.Fee)
	assert.Equal(t, "8.9", q.Fee.String())
	assert.True(t, q.WithinRadius)
	assert.True(t, q.Resolved())
	assert.Equal(t, "9 min", q.DurationText)
}

func TestResolveOutOfRange(t *testing.T) {
	lookup := &stubLookup{fn: func(context.Context, string) (*maps.Distance, error) {
		return &maps.Distance{DistanceText: "15,1 km", DistanceMeters: 15100}, nil
	}}
	r := newTestResolver(t, lookup, nil)

	q := r.Resolve(context.Background(), "Guarulhos, Centro")
	assert.Equal(t, enums.QuoteStatusOutOfRange, q.Status)
	assert.Nil(t, q.Fee)
	assert.False(t, q.WithinRadius)
	assert.False(t, q.Resolved())
}

func TestResolveFailureYieldsErrorQuote(t *testing.T) {
	lookup := &stubLookup{fn: func(context.Context, string) (*maps.Distance, error) {
		return nil, errors.New("boom")
	}}
	r := newTestResolver(t, lookup, nil)

	var updates []Quote
	var mu sync.Mutex
	r.OnUpdate(func(q Quote) {
		mu.Lock()
		updates = append(updates, q)
		mu.Unlock()
	})

	q := r.Resolve(context.Background(), "Rua Alfredo Pujol, Santana")
	assert.Equal(t, enums.QuoteStatusError, q.Status)
	assert.Equal(t, MessageLookupFailed, q.Error)
	assert.Nil(t, q.Fee)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updates, 2)
	assert.Equal(t, enums.QuoteStatusLoading, updates[0].Status)
	assert.Equal(t, enums.QuoteStatusError, updates[1].Status)
}

func TestScheduleDebouncesToLastDestination(t *testing.T) {
	lookup := &stubLookup{fn: func(context.Context, string) (*maps.Distance, error) {
		return &maps.Distance{DistanceText: "750 m"}, nil
	}}
	r := newTestResolver(t, lookup, nil)

	r.Schedule("Rua A, Santana")
	r.Schedule("Rua AB, Santana")
	r.Schedule("Rua ABC, Santana")

	require.Eventually(t, func() bool {
		return r.Quote().Status == enums.QuoteStatusReady
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"Rua ABC, Santana"}, lookup.Calls())
	assert.Equal(t, "3.5", r.Quote().Fee.String())
}

func TestScheduleShortDestinationResetsToIdle(t *testing.T) {
	lookup := &stubLookup{fn: func(context.Context, string) (*maps.Distance, error) {
		return &maps.Distance{DistanceText: "1 km"}, nil
	}}
	r := newTestResolver(t, lookup, nil)

	r.Schedule("Rua")
	assert.Equal(t, enums.QuoteStatusIdle, r.Quote().Status)
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, lookup.Calls())
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	var first atomic.Bool
	lookup := &stubLookup{fn: func(_ context.Context, dest string) (*maps.Distance, error) {
		if dest == "Rua Lenta, Santana" {
			first.Store(true)
			<-release
			return &maps.Distance{DistanceText: "1 km"}, nil
		}
		return &maps.Distance{DistanceText: "4 km"}, nil
	}}
	r := newTestResolver(t, lookup, nil)

	r.Schedule("Rua Lenta, Santana")
	require.Eventually(t, first.Load, time.Second, 5*time.Millisecond)

	q := r.Resolve(context.Background(), "Rua Rapida, Tucuruvi")
	require.Equal(t, "8.9", q.Fee.String())

	close(release)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, "Rua Rapida, Tucuruvi", r.Quote().Destination)
	assert.Equal(t, "8.9", r.Quote().Fee.String())
}

func TestResolveUsesCache(t *testing.T) {
	lookup := &stubLookup{fn: func(context.Context, string) (*maps.Distance, error) {
		return &maps.Distance{DistanceText: "1,5 km", DistanceMeters: 1500}, nil
	}}
	cache := NewDistanceCache(storage.Scope(storage.NewMemoryBackend(), storage.SharedNamespace, time.Hour))
	r := newTestResolver(t, lookup, cache)

	first := r.Resolve(context.Background(), "Rua Dr. Cesar, Santana")
	second := r.Resolve(context.Background(), "  rua dr. cesar, SANTANA ")
	assert.Equal(t, first.Fee.String(), second.Fee.String())
	assert.Len(t, lookup.Calls(), 1)
}

func TestDisabledResolverStaysIdle(t *testing.T) {
	r, err := NewResolver(ResolverConfig{})
	require.NoError(t, err)
	assert.False(t, r.Enabled())
	r.Schedule("Rua Voluntarios da Patria")
	assert.Equal(t, enums.QuoteStatusIdle, r.Resolve(context.Background(), "Rua Voluntarios").Status)
}
