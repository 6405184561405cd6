package migrate

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/annetom/pizzaria-checkout/pkg/config"
	"github.com/annetom/pizzaria-checkout/pkg/db"
	"gorm.io/driver/sqlite"
)

func TestEmbeddedMigrationsRunOnSQLite(t *testing.T) {
	conn, err := db.Open(sqlite.Open("file::memory:"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()

	ctx := context.Background()
	if err := Run(ctx, sqlDB, config.DBDriverSQLite, "up"); err != nil {
		t.Fatalf("goose up: %v", err)
	}

	if !conn.Migrator().HasTable("kv_entries") {
		t.Fatal("expected kv_entries table after migration")
	}

	if err := MigrateToVersion(ctx, sqlDB, config.DBDriverSQLite, "0"); err != nil {
		t.Fatalf("migrate to 0: %v", err)
	}
	if conn.Migrator().HasTable("kv_entries") {
		t.Fatal("expected kv_entries table dropped after down")
	}
}

func TestKVMigrationContainsPrimaryKey(t *testing.T) {
	data, err := Migrations.ReadFile("migrations/20260301120000_create_kv_entries.sql")
	if err != nil {
		t.Fatalf("read embedded migration: %v", err)
	}
	content := string(data)
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS kv_entries",
		"PRIMARY KEY (namespace, entry_key)",
		"DROP TABLE IF EXISTS kv_entries",
	} {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestValidateDirAndCreate(t *testing.T) {
	if err := ValidateFS(Migrations, embeddedDir); err != nil {
		t.Fatalf("embedded migrations should validate: %v", err)
	}

	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Order Cache!")
	if err != nil {
		t.Fatalf("create migration: %v", err)
	}
	if !strings.HasSuffix(path, "_add_order_cache.sql") {
		t.Fatalf("unexpected migration name %q", path)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("generated migration should validate: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- nothing"), 0o644); err != nil {
		t.Fatalf("write bad migration: %v", err)
	}
	if err := ValidateDir(dir); err == nil {
		t.Fatal("expected badly named migration to fail validation")
	}
}

func TestCreateRefusesExistingVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := createAt(dir, "kv ttl index", now); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := createAt(dir, "kv ttl index", now); err == nil {
		t.Fatal("expected second create with the same version to fail")
	}
	if _, err := createAt(dir, "!!!", now); err == nil {
		t.Fatal("expected empty slug to fail")
	}
}

func TestValidateRejectsDownBeforeUp(t *testing.T) {
	dir := t.TempDir()
	body := "-- +goose Down\nDROP TABLE x;\n-- +goose Up\nCREATE TABLE x (id int);\n"
	if err := os.WriteFile(filepath.Join(dir, "20260301120000_x.sql"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ValidateDir(dir); err == nil || !strings.Contains(err.Error(), "Down before Up") {
		t.Fatalf("expected ordering error, got %v", err)
	}
}

func TestSlug(t *testing.T) {
	if got := Slug("  Add Order Cache! "); got != "add_order_cache" {
		t.Fatalf("Slug = %q", got)
	}
}
