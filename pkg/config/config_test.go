package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Storage.Driver != StorageDriverMemory {
		t.Fatalf("expected memory storage by default, got %q", cfg.Storage.Driver)
	}
	if got := cfg.GoogleMaps.Debounce; got != 500*time.Millisecond {
		t.Fatalf("expected 500ms debounce, got %v", got)
	}
	if got := cfg.StoreAPI.Timeout; got != 15*time.Second {
		t.Fatalf("expected 15s store api timeout, got %v", got)
	}
	if len(cfg.Delivery.FeeBands) != 6 {
		t.Fatalf("expected 6 default fee bands, got %d", len(cfg.Delivery.FeeBands))
	}
	if cfg.Delivery.MaxRadiusKm != 15 {
		t.Fatalf("unexpected max radius %v", cfg.Delivery.MaxRadiusKm)
	}
	if cfg.Checkout.Coupons["PRIMEIRA"] != "5.00" {
		t.Fatalf("expected PRIMEIRA coupon default, got %v", cfg.Checkout.Coupons)
	}
	if !cfg.Pix.InvalidationEpsilon.IsZero() {
		t.Fatalf("expected zero pix epsilon, got %s", cfg.Pix.InvalidationEpsilon)
	}
	if cfg.GoogleMaps.Enabled() {
		t.Fatalf("maps should be disabled without api key")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsUnknownStorageDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, "etcd")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown storage driver to fail")
	}
}

func TestLoad_RedisDriverRequiresAddress(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, StorageDriverRedis)

	if _, err := Load(); err == nil {
		t.Fatal("expected redis driver without url to fail")
	}

	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	if _, err := Load(); err != nil {
		t.Fatalf("expected redis driver with url to load: %v", err)
	}
}

func TestLoad_SQLDriverBuildsDSN(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStorageDriver, StorageDriverSQL)
	t.Setenv(EnvDBHost, "db.local")
	t.Setenv(EnvDBUser, "annetom")
	t.Setenv(EnvDBName, "checkout")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	want := "postgres://annetom@db.local:5432/checkout?sslmode=disable"
	if cfg.DB.DSN != want {
		t.Fatalf("unexpected dsn %q", cfg.DB.DSN)
	}
}

func TestLoad_CustomFeeBands(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvFeeBands, "3:4.00, 10:9.50")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	bands := cfg.Delivery.FeeBands
	if len(bands) != 2 {
		t.Fatalf("expected 2 bands, got %d", len(bands))
	}
	if bands[1].MaxKm != 10 || bands[1].Price.StringFixed(2) != "9.50" {
		t.Fatalf("unexpected band %+v", bands[1])
	}
}

func TestFeeBandsDecodeRejectsGarbage(t *testing.T) {
	var bands FeeBands
	if err := bands.Decode("1-3.50"); err == nil {
		t.Fatal("expected malformed pair to fail")
	}
	if err := bands.Decode("abc:3.50"); err == nil {
		t.Fatal("expected non-numeric distance to fail")
	}
	if err := bands.Decode("1:free"); err == nil {
		t.Fatal("expected non-numeric price to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvStoreAPIKey, "public-key")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
