package menu

import (
	"context"
	"sync"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
)

type Fetcher interface {
	FetchMenu(ctx context.Context) (*storeapi.Response, error)
}

// Service caches the normalized catalog for ttl.
type Service struct {
	fetcher Fetcher
	ttl     time.Duration
	now     func() time.Time

	mu        sync.Mutex
	catalog   *Catalog
	fetchedAt time.Time
}

func NewService(fetcher Fetcher, ttl time.Duration) (*Service, error) {
	if fetcher == nil {
		return nil, errors.New(errors.CodeInternal, "menu fetcher is required")
	}
	return &Service{fetcher: fetcher, ttl: ttl, now: time.Now}, nil
}

// Catalog returns the cached catalog, fetching it when stale. A failed
// refresh falls back to the previous catalog when there is one.
func (s *Service) Catalog(ctx context.Context) (*Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.catalog != nil && s.now().Sub(s.fetchedAt) < s.ttl {
		return s.catalog, nil
	}

	catalog, err := s.fetch(ctx)
	if err != nil {
		if s.catalog != nil {
			return s.catalog, nil
		}
		return nil, err
	}
	s.catalog = catalog
	s.fetchedAt = s.now()
	return catalog, nil
}

// Invalidate forces the next Catalog call to refetch.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

func (s *Service) fetch(ctx context.Context) (*Catalog, error) {
	resp, err := s.fetcher.FetchMenu(ctx)
	if err != nil {
		return nil, err
	}
	if resp.Failed() {
		msg := resp.Message()
		if msg == "" {
			msg = "menu unavailable"
		}
		return nil, errors.New(errors.CodeDependency, msg)
	}
	return ParseCatalog(resp.Data)
}
