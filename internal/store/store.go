package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"roompanel-firmware/internal/model"
)

// Setting keys. Each value is independently readable and writable.
const (
	KeyServerURL   = "server_url"
	KeyDeviceToken = "device_token"
	KeyTimezone    = "timezone"
	KeySetupPIN    = "setup_pin"
	KeyBootCount   = "boot_count"
	KeyLastBootAt  = "last_boot_at"
)

// Store is the persistent key/value service backing device configuration and
// the boot-loop guard.
type Store interface {
	GetString(ctx context.Context, key string) (string, error)
	PutString(ctx context.Context, key, value string) error
	GetInt(ctx context.Context, key string) (int, error)
	PutInt(ctx context.Context, key string, value int) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error

	LoadDeviceConfig(ctx context.Context) (model.DeviceConfig, error)
	SaveDeviceConfig(ctx context.Context, cfg model.DeviceConfig) error

	BootCount(ctx context.Context) (int, error)
	SetBootCount(ctx context.Context, n int) error
	MarkBoot(ctx context.Context, at time.Time) (int, error)
}

// gormStore implements Store on the sqlite settings table.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed settings store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// GetString returns the stored value, or "" when the key was never written.
func (s *gormStore) GetString(ctx context.Context, key string) (string, error) {
	var setting model.Setting
	err := s.db.WithContext(ctx).First(&setting, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}
	return setting.Value, nil
}

func (s *gormStore) PutString(ctx context.Context, key, value string) error {
	setting := model.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return fmt.Errorf("failed to write setting %q: %w", key, err)
	}
	return nil
}

// GetInt returns the stored value, or 0 when the key is absent or malformed.
// A corrupted counter must never wedge the boot path.
func (s *gormStore) GetInt(ctx context.Context, key string) (int, error) {
	raw, err := s.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return n, nil
}

func (s *gormStore) PutInt(ctx context.Context, key string, value int) error {
	return s.PutString(ctx, key, strconv.Itoa(value))
}

func (s *gormStore) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Delete(&model.Setting{}, "key = ?", key).Error
	if err != nil {
		return fmt.Errorf("failed to delete setting %q: %w", key, err)
	}
	return nil
}

// Clear wipes every persisted setting. Used by factory reset only.
func (s *gormStore) Clear(ctx context.Context) error {
	err := s.db.WithContext(ctx).Where("1 = 1").Delete(&model.Setting{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}

// LoadDeviceConfig assembles the runtime configuration from its keys.
func (s *gormStore) LoadDeviceConfig(ctx context.Context) (model.DeviceConfig, error) {
	var cfg model.DeviceConfig
	var err error
	if cfg.ServerURL, err = s.GetString(ctx, KeyServerURL); err != nil {
		return cfg, err
	}
	if cfg.DeviceToken, err = s.GetString(ctx, KeyDeviceToken); err != nil {
		return cfg, err
	}
	if cfg.Timezone, err = s.GetString(ctx, KeyTimezone); err != nil {
		return cfg, err
	}
	if cfg.SetupPIN, err = s.GetString(ctx, KeySetupPIN); err != nil {
		return cfg, err
	}
	cfg.Normalize()
	return cfg, nil
}

func (s *gormStore) SaveDeviceConfig(ctx context.Context, cfg model.DeviceConfig) error {
	cfg.Normalize()
	pairs := map[string]string{
		KeyServerURL:   cfg.ServerURL,
		KeyDeviceToken: cfg.DeviceToken,
		KeyTimezone:    cfg.Timezone,
		KeySetupPIN:    cfg.SetupPIN,
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for key, value := range pairs {
			setting := model.Setting{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&setting).Error
			if err != nil {
				return fmt.Errorf("failed to save %q: %w", key, err)
			}
		}
		return nil
	})
}

func (s *gormStore) BootCount(ctx context.Context) (int, error) {
	return s.GetInt(ctx, KeyBootCount)
}

func (s *gormStore) SetBootCount(ctx context.Context, n int) error {
	return s.PutInt(ctx, KeyBootCount, n)
}

// MarkBoot increments the persisted boot counter, records the boot timestamp
// and returns the new count.
func (s *gormStore) MarkBoot(ctx context.Context, at time.Time) (int, error) {
	count, err := s.BootCount(ctx)
	if err != nil {
		return 0, err
	}
	count++
	if err := s.SetBootCount(ctx, count); err != nil {
		return 0, err
	}
	if err := s.PutString(ctx, KeyLastBootAt, at.UTC().Format(time.RFC3339)); err != nil {
		return 0, err
	}
	return count, nil
}
