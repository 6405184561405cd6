package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annetom/pizzaria-checkout/api/routes"
	"github.com/annetom/pizzaria-checkout/internal/address"
	"github.com/annetom/pizzaria-checkout/internal/checkout"
	"github.com/annetom/pizzaria-checkout/internal/customers"
	"github.com/annetom/pizzaria-checkout/internal/delivery"
	"github.com/annetom/pizzaria-checkout/internal/menu"
	"github.com/annetom/pizzaria-checkout/internal/orders"
	"github.com/annetom/pizzaria-checkout/pkg/config"
	"github.com/annetom/pizzaria-checkout/pkg/env"
	"github.com/annetom/pizzaria-checkout/pkg/idempotency"
	"github.com/annetom/pizzaria-checkout/pkg/instance"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/maps"
	"github.com/annetom/pizzaria-checkout/pkg/metrics"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
	"github.com/annetom/pizzaria-checkout/pkg/viacep"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "checkout-api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "checkout-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logg)
	requireResource(ctx, logg, "storage", err)
	defer store.Close(context.Background(), logg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	backend, err := storeapi.NewClient(cfg.StoreAPI.APIKey,
		storeapi.WithBaseURL(cfg.StoreAPI.BaseURL),
		storeapi.WithTimeout(cfg.StoreAPI.Timeout),
		storeapi.WithPaymentPaths(cfg.StoreAPI.PixPath, cfg.StoreAPI.CardPath),
		storeapi.WithObserver(checkoutMetrics),
	)
	requireResource(ctx, logg, "store api client", err)

	svc, err := buildServices(cfg, logg, backend, store, checkoutMetrics)
	requireResource(ctx, logg, "checkout services", err)

	sessions, err := checkout.NewRegistry(store.backend, svc, checkout.RegistryConfig{
		SessionTTL: cfg.Storage.SessionTTL,
		IdleTTL:    cfg.Checkout.IdleTTL,
	})
	requireResource(ctx, logg, "session registry", err)
	sessions.Start()
	defer sessions.Close()

	tracker, err := orders.NewService(backend, logg)
	requireResource(ctx, logg, "order tracker", err)

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"storage":  cfg.Storage.Driver,
		"instance": instance.ID(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			Sessions: sessions,
			Catalog:  svc.Catalog,
			Settings: backend,
			Orders:   tracker,
			Storage:  store.backend,
			Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting checkout api")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down checkout api")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}

// buildServices wires the collaborators shared by every checkout session.
func buildServices(cfg *config.Config, logg *logger.Logger, backend *storeapi.Client, store *sessionStorage, m *metrics.CheckoutMetrics) (*checkout.Services, error) {
	catalog, err := menu.NewService(backend, cfg.StoreAPI.MenuTTL)
	if err != nil {
		return nil, err
	}
	directory, err := customers.NewService(backend, logg)
	if err != nil {
		return nil, err
	}
	orderService, err := orders.NewService(backend, logg)
	if err != nil {
		return nil, err
	}

	fees, err := delivery.NewFeeTable(cfg.Delivery.FeeBands)
	if err != nil {
		return nil, err
	}
	hoods, err := delivery.NewNeighborhoodFees(cfg.Delivery.NeighborhoodFees, cfg.Delivery.DefaultNeighborhoodFee)
	if err != nil {
		return nil, err
	}
	coupons, err := checkout.NewCoupons(cfg.Checkout.Coupons)
	if err != nil {
		return nil, err
	}
	submitLock, err := idempotency.NewManager(store.lockStore, cfg.Checkout.SubmitLockTTL)
	if err != nil {
		return nil, err
	}

	distance := delivery.ResolverConfig{
		Origin:      cfg.GoogleMaps.Origin,
		Fees:        fees,
		MaxRadiusKm: cfg.Delivery.MaxRadiusKm,
		Debounce:    cfg.GoogleMaps.Debounce,
		Timeout:     cfg.GoogleMaps.Timeout,
		Cache:       delivery.NewDistanceCache(storage.Scope(store.backend, storage.SharedNamespace, cfg.GoogleMaps.CacheTTL)),
		Logger:      logg,
		Metrics:     m,
	}
	if cfg.GoogleMaps.Enabled() {
		opts := []maps.Option{maps.WithTimeout(cfg.GoogleMaps.Timeout)}
		if cfg.GoogleMaps.BaseURL != "" {
			opts = append(opts, maps.WithBaseURL(cfg.GoogleMaps.BaseURL))
		}
		client, err := maps.NewClient(cfg.GoogleMaps.APIKey, opts...)
		if err != nil {
			return nil, err
		}
		distance.Lookup = client
	} else {
		logg.Warn(context.Background(), "google maps key missing, delivery fees fall back to the neighborhood table")
	}

	cep := viacep.NewClient(
		viacep.WithBaseURL(cfg.ViaCEP.BaseURL),
		viacep.WithTimeout(cfg.ViaCEP.Timeout),
	)

	return &checkout.Services{
		Catalog:      catalog,
		Customers:    directory,
		Addresses:    address.NewService(cep),
		Orders:       orderService,
		PixBackend:   backend,
		CardBackend:  backend,
		Distance:     distance,
		Neighborhood: hoods,
		Coupons:      coupons,
		Pix: checkout.PixSettings{
			Currency: cfg.Pix.Currency,
			Source:   cfg.Pix.Source,
			Epsilon:  cfg.Pix.InvalidationEpsilon,
		},
		SubmitLock: submitLock,
		Logger:     logg,
		Metrics:    m,
	}, nil
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
