package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Second, cfg.Engine.GlobalDeadline())
	assert.Equal(t, 5*time.Second, cfg.Engine.TierTimeout())
	assert.Equal(t, 5, cfg.Engine.BreakerThreshold)
	assert.Equal(t, 60*time.Second, cfg.Engine.BreakerCooldown())
	assert.Equal(t, 6*time.Hour, cfg.Cache.TTL())
	assert.Equal(t, 2*time.Hour, cfg.Cache.StaleAfter())
	assert.Equal(t, 365, cfg.Validation.MaxAgeDays)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, 8, cfg.Seed.Concurrency)
	assert.Equal(t, 10*time.Minute, cfg.Seed.BreakerCooldown())
	assert.Empty(t, cfg.Vendor.BaseURL, "vendor tier is off by default")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RATINGS_SERVER_PORT", "9090")
	t.Setenv("RATINGS_ENGINE_GLOBAL_DEADLINE_SECS", "20")
	t.Setenv("RATINGS_VENDOR_BASE_URL", "https://feed.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Engine.GlobalDeadline())
	assert.Equal(t, "https://feed.example", cfg.Vendor.BaseURL)
}
