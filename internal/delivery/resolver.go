package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/enums"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/maps"
)

const (
	minDestinationLength = 5
	defaultDebounce      = 500 * time.Millisecond
	defaultLookupTimeout = 8 * time.Second
)

// DistanceLookup is the Distance Matrix surface the resolver needs.
type DistanceLookup interface {
	DistanceMatrix(ctx context.Context, origin, destination string) (*maps.Distance, error)
}

type lookupObserver interface {
	IncDistanceLookup(outcome string)
}

// ResolverConfig is shared by every session's resolver.
type ResolverConfig struct {
	Lookup      DistanceLookup
	Origin      string
	Fees        *FeeTable
	MaxRadiusKm float64
	Debounce    time.Duration
	Timeout     time.Duration
	Cache       *DistanceCache
	Logger      *logger.Logger
	Metrics     lookupObserver
}

// Resolver turns a destination into a Quote. Schedule debounces; every new
// request bumps a generation counter and results from older generations are
// dropped.
type Resolver struct {
	cfg ResolverConfig

	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	quote    Quote
	onUpdate func(Quote)
	stopped  bool
}

func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Lookup != nil && cfg.Fees == nil {
		return nil, errors.New("fee table is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLookupTimeout
	}
	if cfg.MaxRadiusKm <= 0 && cfg.Fees != nil {
		cfg.MaxRadiusKm = cfg.Fees.MaxKm()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Resolver{cfg: cfg, quote: IdleQuote()}, nil
}

// Enabled reports whether distance lookups are configured.
func (r *Resolver) Enabled() bool {
	return r != nil && r.cfg.Lookup != nil
}

// OnUpdate registers the listener called with every published quote.
// It runs outside the resolver lock.
func (r *Resolver) OnUpdate(fn func(Quote)) {
	r.mu.Lock()
	r.onUpdate = fn
	r.mu.Unlock()
}

// Quote returns the latest published quote.
func (r *Resolver) Quote() Quote {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.quote
}

// Schedule starts a debounced lookup for destination, cancelling any pending one.
func (r *Resolver) Schedule(destination string) {
	if !r.Enabled() {
		return
	}
	dest := strings.TrimSpace(destination)

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	gen := r.bumpLocked()
	if !validDestination(dest) {
		q := r.publishLocked(IdleQuote())
		r.mu.Unlock()
		r.notify(q)
		return
	}
	q := r.publishLocked(Quote{Status: enums.QuoteStatusLoading, Source: enums.QuoteSourceDistance, Destination: dest})
	r.timer = time.AfterFunc(r.cfg.Debounce, func() {
		r.run(context.Background(), gen, dest)
	})
	r.mu.Unlock()
	r.notify(q)
}

// Resolve runs the lookup right away and returns the resulting quote. If a
// newer request superseded this one, the newer state is returned instead.
func (r *Resolver) Resolve(ctx context.Context, destination string) Quote {
	if !r.Enabled() {
		return IdleQuote()
	}
	dest := strings.TrimSpace(destination)

	r.mu.Lock()
	if r.stopped {
		q := r.quote
		r.mu.Unlock()
		return q
	}
	gen := r.bumpLocked()
	var q Quote
	if validDestination(dest) {
		q = r.publishLocked(Quote{Status: enums.QuoteStatusLoading, Source: enums.QuoteSourceDistance, Destination: dest})
	} else {
		q = r.publishLocked(IdleQuote())
	}
	r.mu.Unlock()
	r.notify(q)

	if !validDestination(dest) {
		return q
	}
	r.run(ctx, gen, dest)
	return r.Quote()
}

// Reset cancels pending work and returns to idle.
func (r *Resolver) Reset() {
	r.mu.Lock()
	r.bumpLocked()
	q := r.publishLocked(IdleQuote())
	r.mu.Unlock()
	r.notify(q)
}

// Stop cancels pending work. Later calls are ignored.
func (r *Resolver) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bumpLocked()
	r.stopped = true
}

func (r *Resolver) bumpLocked() uint64 {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	return r.gen
}

func (r *Resolver) publishLocked(q Quote) Quote {
	r.quote = q
	return q
}

func (r *Resolver) notify(q Quote) {
	r.mu.Lock()
	fn := r.onUpdate
	r.mu.Unlock()
	if fn != nil {
		fn(q)
	}
}

func (r *Resolver) run(parent context.Context, gen uint64, dest string) {
	ctx, cancel := context.WithTimeout(parent, r.cfg.Timeout)
	defer cancel()

	q := r.lookup(ctx, dest)

	r.mu.Lock()
	if gen != r.gen || r.stopped {
		r.mu.Unlock()
		r.observe("stale")
		return
	}
	r.publishLocked(q)
	r.mu.Unlock()
	r.notify(q)
}

func (r *Resolver) lookup(ctx context.Context, dest string) Quote {
	dist, hit, err := r.cfg.Cache.Get(ctx, dest)
	if err != nil {
		r.cfg.Logger.Warn(r.cfg.Logger.WithField(ctx, "error", err.Error()), "delivery.distance_cache.get_failed")
	}
	if hit {
		r.observe("cache_hit")
	} else {
		dist, err = r.cfg.Cache.Fetch(ctx, dest, func(ctx context.Context) (*maps.Distance, error) {
			found, err := r.cfg.Lookup.DistanceMatrix(ctx, r.cfg.Origin, dest)
			if err != nil {
				return nil, err
			}
			if err := r.cfg.Cache.Put(ctx, dest, found); err != nil {
				r.cfg.Logger.Warn(r.cfg.Logger.WithField(ctx, "error", err.Error()), "delivery.distance_cache.put_failed")
			}
			return found, nil
		})
		if err != nil {
			r.cfg.Logger.Error(r.cfg.Logger.WithField(ctx, "destination", dest), "delivery.distance_lookup_failed", err)
			r.observe("error")
			return errorQuote(dest)
		}
	}

	q := r.quoteFromDistance(dest, dist)
	switch q.Status {
	case enums.QuoteStatusOutOfRange:
		r.observe("out_of_range")
	case enums.QuoteStatusError:
		r.observe("error")
	default:
		if !hit {
			r.observe("ok")
		}
	}
	return q
}

func (r *Resolver) quoteFromDistance(dest string, dist *maps.Distance) Quote {
	if dist == nil {
		return errorQuote(dest)
	}
	var km *float64
	if dist.DistanceMeters > 0 {
		v := float64(dist.DistanceMeters) / 1000
		km = &v
	} else {
		km = ParseDistanceKm(dist.DistanceText)
	}
	if km == nil {
		return errorQuote(dest)
	}

	q := Quote{
		Status:       enums.QuoteStatusReady,
		Source:       enums.QuoteSourceDistance,
		Destination:  dest,
		DistanceKm:   km,
		DistanceText: dist.DistanceText,
		DurationText: dist.DurationText,
		WithinRadius: WithinRadius(*km, r.cfg.MaxRadiusKm),
	}
	fee := r.cfg.Fees.FeeForDistance(*km)
	if !q.WithinRadius || fee == nil {
		q.Status = enums.QuoteStatusOutOfRange
		q.Error = MessageOutOfRange
		return q
	}
	q.Fee = fee
	return q
}

func (r *Resolver) observe(outcome string) {
	if r.cfg.Metrics != nil {
		r.cfg.Metrics.IncDistanceLookup(outcome)
	}
}

func errorQuote(dest string) Quote {
	return Quote{
		Status:      enums.QuoteStatusError,
		Source:      enums.QuoteSourceDistance,
		Destination: dest,
		Error:       MessageLookupFailed,
	}
}

func validDestination(dest string) bool {
	return len([]rune(dest)) >= minDestinationLength
}
