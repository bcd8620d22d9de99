package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"roompanel-firmware/internal/model"
)

func newTestStore(t *testing.T) Store {
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&model.Setting{}))
	return NewGormStore(gdb)
}

func TestStringRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	val, err := s.GetString(ctx, KeyServerURL)
	require.NoError(t, err)
	assert.Equal(t, "", val, "missing key reads as empty")

	require.NoError(t, s.PutString(ctx, KeyServerURL, "https://rooms.example.com"))
	val, err = s.GetString(ctx, KeyServerURL)
	require.NoError(t, err)
	assert.Equal(t, "https://rooms.example.com", val)

	// Overwrite must win.
	require.NoError(t, s.PutString(ctx, KeyServerURL, "https://other.example.com"))
	val, err = s.GetString(ctx, KeyServerURL)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com", val)
}

func TestIntHandlesGarbage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutString(ctx, KeyBootCount, "not-a-number"))
	n, err := s.GetInt(ctx, KeyBootCount)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "corrupted counter must read as zero, not error")
}

func TestDeviceConfigRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	cfg, err := s.LoadDeviceConfig(ctx)
	require.NoError(t, err)
	assert.False(t, cfg.Configured())
	assert.Equal(t, model.DefaultSetupPIN, cfg.SetupPIN)

	saved := model.DeviceConfig{
		ServerURL:   "https://rooms.example.com/",
		DeviceToken: "tok-123",
		Timezone:    "Europe/Berlin",
		SetupPIN:    "4711",
	}
	require.NoError(t, s.SaveDeviceConfig(ctx, saved))

	cfg, err = s.LoadDeviceConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://rooms.example.com", cfg.ServerURL, "trailing slash stripped on save")
	assert.Equal(t, "tok-123", cfg.DeviceToken)
	assert.Equal(t, "Europe/Berlin", cfg.Timezone)
	assert.Equal(t, "4711", cfg.SetupPIN)
	assert.True(t, cfg.Configured())
}

func TestBootCounter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

	for i := 1; i <= 3; i++ {
		count, err := s.MarkBoot(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	require.NoError(t, s.SetBootCount(ctx, 0))
	count, err := s.BootCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	ts, err := s.GetString(ctx, KeyLastBootAt)
	require.NoError(t, err)
	assert.Equal(t, now.Format(time.RFC3339), ts)
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutString(ctx, KeyDeviceToken, "tok"))
	require.NoError(t, s.PutInt(ctx, KeyBootCount, 4))
	require.NoError(t, s.Clear(ctx))

	val, err := s.GetString(ctx, KeyDeviceToken)
	require.NoError(t, err)
	assert.Equal(t, "", val)
	n, err := s.BootCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
