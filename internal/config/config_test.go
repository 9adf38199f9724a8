package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "postgres", cfg.Store)
	assert.Equal(t, "none", cfg.Locking)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, "dev-api-key-change-in-production", cfg.APIKey)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.RedisEnabled())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_PORT", "9100")
	t.Setenv("LEDGER_STORE", "memory")
	t.Setenv("LEDGER_LOCKING", "row")
	t.Setenv("LEDGER_REDIS_ADDR", "localhost:6379")
	t.Setenv("LEDGER_CACHE_TTL", "30s")
	t.Setenv("LEDGER_RECONCILE_ON_EVENTS", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, "row", cfg.Locking)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.True(t, cfg.ReconcileOnEvents)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 7000\ncurrency: EUR\nrate_limit_rps: 20\n"), 0o600))
	t.Setenv("LEDGER_RATE_LIMIT_RPS", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, 50, cfg.RateLimitRPS, "environment wins over the file")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown locking", "LEDGER_LOCKING", "optimistic"},
		{"unknown store", "LEDGER_STORE", "sqlite"},
		{"unknown currency", "LEDGER_CURRENCY", "ZZZ"},
		{"port out of range", "LEDGER_PORT", "70000"},
		{"negative idle connections", "LEDGER_DB_MAX_IDLE_CONNS", "-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
					t.Setenv(tt.key, tt.val)
			_, err := Load("")
			assert.Error(t, err)
		})
	}
}
