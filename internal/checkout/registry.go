package checkout

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/errors"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
)

const (
	defaultIdleTTL         = 30 * time.Minute
	defaultJanitorInterval = time.Minute
)

type RegistryConfig struct {
	// SessionTTL bounds how long persisted session keys live in the backend.
	SessionTTL time.Duration
	// IdleTTL evicts in-memory engines that were not used for this long.
	IdleTTL         time.Duration
	JanitorInterval time.Duration
}

// Registry keeps one Engine per checkout session. Evicting an engine only
// drops in-memory state; the session resumes from storage on the next request.
type Registry struct {
	backend storage.Backend
	svc     *Services
	cfg     RegistryConfig

	mu      sync.Mutex
	engines map[string]*Engine
	started bool

	stop      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func NewRegistry(backend storage.Backend, svc *Services, cfg RegistryConfig) (*Registry, error) {
	if backend == nil {
		return nil, errors.New(errors.CodeInternal, "storage backend is required")
	}
	if err := svc.validate(); err != nil {
		return nil, err
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = defaultIdleTTL
	}
	if cfg.JanitorInterval <= 0 {
		cfg.JanitorInterval = defaultJanitorInterval
	}
	return &Registry{
		backend: backend,
		svc:     svc,
		cfg:     cfg,
		engines: make(map[string]*Engine),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Engine returns the session's engine, hydrating it from storage when needed.
func (r *Registry) Engine(ctx context.Context, sessionID string) (*Engine, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, errors.New(errors.CodeValidation, "session id is required")
	}

	r.mu.Lock()
	if e, ok := r.engines[sessionID]; ok {
		r.mu.Unlock()
		return e, nil
	}
	r.mu.Unlock()

	created, err := NewEngine(ctx, sessionID, storage.Scope(r.backend, sessionID, r.cfg.SessionTTL), r.svc)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if existing, ok := r.engines[sessionID]; ok {
		r.mu.Unlock()
		created.Close()
		return existing, nil
	}
	r.engines[sessionID] = created
	n := len(r.engines)
	r.mu.Unlock()

	r.svc.Metrics.SetActiveSessions(n)
	return created, nil
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Start launches the janitor. It stops on Close.
func (r *Registry) Start() {
	r.startOnce.Do(func() {
		r.mu.Lock()
		r.started = true
		r.mu.Unlock()
		go r.janitor()
	})
}

func (r *Registry) janitor() {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.JanitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep(context.Background())
		}
	}
}

// Sweep evicts idle engines and purges expired storage entries.
func (r *Registry) Sweep(ctx context.Context) int {
	cutoff := r.svc.Now().Add(-r.cfg.IdleTTL)

	r.mu.Lock()
	var idle []*Engine
	for id, e := range r.engines {
		if e.LastSeen().Before(cutoff) {
			idle = append(idle, e)
			delete(r.engines, id)
		}
	}
	n := len(r.engines)
	r.mu.Unlock()

	for _, e := range idle {
		e.Close()
	}
	r.svc.Metrics.SetActiveSessions(n)

	if purger, ok := r.backend.(storage.Purger); ok {
		removed, err := purger.PurgeExpired(ctx)
		if err != nil {
			r.svc.Logger.Warn(r.svc.Logger.WithField(ctx, "error", err.Error()), "checkout.registry.purge_failed")
		} else if removed > 0 {
			r.svc.Logger.Debug(r.svc.Logger.WithField(ctx, "removed", removed), "checkout.registry.purged")
		}
	}
	if len(idle) > 0 {
		r.svc.Logger.Debug(r.svc.Logger.WithField(ctx, "evicted", len(idle)), "checkout.registry.evicted")
	}
	return len(idle)
}

// Close stops the janitor and every engine.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stop)
		r.mu.Lock()
		started := r.started
		r.mu.Unlock()
		if started {
			<-r.done
		}

		r.mu.Lock()
		engines := r.engines
		r.engines = make(map[string]*Engine)
		r.mu.Unlock()
		for _, e := range engines {
			e.Close()
		}
		r.svc.Metrics.SetActiveSessions(0)
	})
}
