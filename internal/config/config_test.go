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
	assert.Equal(t, "pricehunter", cfg.Database.Name)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 90*time.Second, cfg.Aggregation.GlobalTimeout)
	assert.Equal(t, 2*time.Second, cfg.Adapters.RateInterval)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.NotEmpty(t, cfg.Adapters.UserAgent)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("YAHOO_APP_ID", "yahoo-id")
	t.Setenv("AGGREGATION_TIMEOUT", "2m")
	t.Setenv("BROWSER_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "yahoo-id", cfg.Adapters.YahooAppID)
	assert.Equal(t, 2*time.Minute, cfg.Aggregation.GlobalTimeout)
	assert.False(t, cfg.Browser.Headless)
}

func TestLoadIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("AGGREGATION_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 90*time.Second, cfg.Aggregation.GlobalTimeout)
}

func TestValidate(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())

	short := *cfg
	short.Aggregation.GlobalTimeout = time.Second
	assert.Error(t, short.Validate())

	negative := *cfg
	negative.Adapters.RateInterval = -time.Second
	assert.Error(t, negative.Validate())

	noConns := *cfg
	noConns.Database.MaxConns = 0
	assert.Error(t, noConns.Validate())
}
