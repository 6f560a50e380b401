package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "storage:\n  path: "+filepath.Join(dir, "db", "site.db")+"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "EST", cfg.Booking.TimezoneLabel)
	assert.Equal(t, 30*time.Minute, cfg.WizardTimeout())
	assert.Equal(t, 180*24*time.Hour, cfg.BookmarkTTL())
	assert.Equal(t, int64(5<<20), cfg.MaxUploadBytes())
	assert.True(t, cfg.PreventDoubleBooking())
	assert.Nil(t, cfg.BookingDaysOff())
	assert.Equal(t, 9, cfg.DigestHour())
	assert.Equal(t, 15*time.Second, cfg.GRPCRefreshInterval())
	assert.True(t, cfg.StorageFallback(), "demo fallback is on unless disabled")
	assert.Zero(t, cfg.Server.TrustedProxies)
	assert.DirExists(t, filepath.Join(dir, "db"))
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("TEST_REST_URL", "https://db.example.com")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
storage:
  driver: REST
  fallback: false
rest:
  base_url: ${TEST_REST_URL}
  cache_ttl_seconds: 60
booking:
  prevent_double_booking: false
  days_off: [sun, Saturday, mon]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DriverREST, cfg.Storage.Driver)
	assert.Equal(t, "https://db.example.com", cfg.REST.BaseURL)
	assert.Equal(t, time.Minute, cfg.RESTCacheTTL())
	assert.False(t, cfg.PreventDoubleBooking())
	assert.False(t, cfg.StorageFallback())
	assert.Equal(t, []time.Weekday{time.Sunday, time.Saturday, time.Monday}, cfg.BookingDaysOff())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("COACHSITE_STORAGE_DRIVER", "fixture")
	t.Setenv("COACHSITE_LOG_LEVEL", "debug")
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "storage:\n  driver: postgres\nlog:\n  level: warn\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverFixture, cfg.Storage.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"postgres without dsn", "storage:\n  driver: postgres\n", "storage.dsn is required"},
		{"rest without url", "storage:\n  driver: rest\n", "rest.base_url is required"},
		{"unknown driver", "storage:\n  driver: mongo\n", "unknown storage driver"},
		{"admins without secret", "storage:\n  driver: fixture\nadmin:\n  users:\n    - email: a@b.c\n", "jwt_secret"},
		{"bad weekday", "storage:\n  driver: fixture\nbooking:\n  days_off: [funday]\n", "unknown weekday"},
		{"digest hour out of range", "storage:\n  driver: fixture\nnotify:\n  digest_hour: 24\n", "digest_hour"},
		{"negative trusted proxies", "storage:\n  driver: fixture\nserver:\n  trusted_proxies: -1\n", "trusted_proxies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "config.yaml", tt.body)
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWatchFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.txt", "one")

	var calls atomic.Int32
	var last atomic.Value
	load := func(p string) (string, error) {
		b, err := os.ReadFile(p)
		return string(b), err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := WatchFile(ctx, path, 10*time.Millisecond, load, func(v string) {
		calls.Add(1)
		last.Store(v)
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "one", last.Load())

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
	future := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	assert.Eventually(t, func() bool { return last.Load() == "two" }, time.Second, 10*time.Millisecond)
}

func TestWatchFileInitialError(t *testing.T) {
	err := WatchFile(context.Background(), filepath.Join(t.TempDir(), "missing"), time.Second,
		func(p string) ([]byte, error) { return os.ReadFile(p) }, nil)
	assert.Error(t, err)
}
