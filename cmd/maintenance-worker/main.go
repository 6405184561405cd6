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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/annetom/pizzaria-checkout/internal/maintenance"
	"github.com/annetom/pizzaria-checkout/pkg/config"
	"github.com/annetom/pizzaria-checkout/pkg/db"
	"github.com/annetom/pizzaria-checkout/pkg/instance"
	"github.com/annetom/pizzaria-checkout/pkg/logger"
	"github.com/annetom/pizzaria-checkout/pkg/metrics"
	"github.com/annetom/pizzaria-checkout/pkg/migrate"
	"github.com/annetom/pizzaria-checkout/pkg/redis"
	"github.com/annetom/pizzaria-checkout/pkg/storage"
	"github.com/annetom/pizzaria-checkout/pkg/storeapi"
)

const lockName = "maintenance-worker"

func main() {
	logg := logger.New(logger.Options{ServiceName: "maintenance-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "maintenance-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"storage":  cfg.Storage.Driver,
		"instance": instance.ID(),
	})

	var jobs []maintenance.Job

	if cfg.Storage.Driver == config.StorageDriverSQL {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap database", err)
			os.Exit(1)
		}
		defer func() {
			if err := dbClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing database", err)
			}
		}()
		if err := migrate.MaybeAutoRun(ctx, cfg, logg, dbClient); err != nil {
			logg.Error(ctx, "failed to run migrations", err)
			os.Exit(1)
		}
		purge, err := maintenance.NewStoragePurgeJob(storage.NewSQLBackend(dbClient.DB()), logg)
		if err != nil {
			logg.Error(ctx, "failed to create purge job", err)
			os.Exit(1)
		}
		jobs = append(jobs, purge)
	}

	backend, err := storeapi.NewClient(cfg.StoreAPI.APIKey,
		storeapi.WithBaseURL(cfg.StoreAPI.BaseURL),
		storeapi.WithTimeout(cfg.StoreAPI.Timeout),
	)
	if err != nil {
		logg.Error(ctx, "failed to create store api client", err)
		os.Exit(1)
	}
	probe, err := maintenance.NewMenuProbeJob(backend, logg)
	if err != nil {
		logg.Error(ctx, "failed to create menu probe", err)
		os.Exit(1)
	}
	jobs = append(jobs, probe)

	var lock maintenance.Lock = &maintenance.LocalLock{}
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		lock, err = maintenance.NewRedisLock(redisClient, redisClient.LockKey(lockName), cfg.Worker.LockTTL)
		if err != nil {
			logg.Error(ctx, "failed to create worker lock", err)
			os.Exit(1)
		}
	}

	registry := prometheus.NewRegistry()
	service, err := maintenance.NewService(maintenance.ServiceParams{
		Logger:   logg,
		Jobs:     jobs,
		Lock:     lock,
		Metrics:  metrics.NewMaintenanceMetrics(registry),
		Interval: cfg.Worker.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create maintenance service", err)
		os.Exit(1)
	}

	if cfg.Worker.MetricsAddr != "" {
		server := &http.Server{
			Addr:              cfg.Worker.MetricsAddr,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logg.Error(ctx, "metrics listener stopped", err)
			}
		}()
		defer server.Close()
	}

	logg.Info(ctx, "starting maintenance worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "maintenance worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "maintenance worker shutting down gracefully")
}
