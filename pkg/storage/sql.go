package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntry is one row of kv_entries.
type KVEntry struct {
	Namespace string `gorm:"column:namespace;primaryKey"`
	EntryKey  string `gorm:"column:entry_key;primaryKey"`
	Value     string `gorm:"column:value"`
	ExpiresAt *time.Time
	UpdatedAt time.Time
}

func (KVEntry) TableName() string { return "kv_entries" }

// SQLBackend persists entries in the kv_entries table (postgres or sqlite).
type SQLBackend struct {
	db  *gorm.DB
	now func() time.Time
}

func NewSQLBackend(db *gorm.DB) *SQLBackend {
	return &SQLBackend{db: db, now: time.Now}
}

func (s *SQLBackend) Get(ctx context.Context, namespace, key string) ([]byte, error) {
	var entry KVEntry
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", namespace, key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if entry.ExpiresAt != nil && !s.now().Before(*entry.ExpiresAt) {
		return nil, ErrNotFound
	}
	return []byte(entry.Value), nil
}

func (s *SQLBackend) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	now := s.now().UTC()
	entry := KVEntry{
		Namespace: namespace,
		EntryKey:  key,
		Value:     string(value),
		UpdatedAt: now,
	}
	if ttl > 0 {
		expires := now.Add(ttl)
		entry.ExpiresAt = &expires
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

func (s *SQLBackend) Remove(ctx context.Context, namespace, key string) error {
	return s.db.WithContext(ctx).
		Where("namespace = ? AND entry_key = ?", namespace, key).
		Delete(&KVEntry{}).Error
}

func (s *SQLBackend) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// PurgeExpired deletes rows whose expiry has passed.
func (s *SQLBackend) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&KVEntry{})
	return res.RowsAffected, res.Error
}
