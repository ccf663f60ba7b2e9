package config_test

import (
	"testing"

	"github.com/nulzo/bifrost/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := config.LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.False(t, cfg.Auth.RejectInvalidKeys)
	assert.Equal(t, 50.0, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 100, cfg.RateLimit.Burst)
	assert.False(t, cfg.Tracing.Enabled)
	assert.NotEmpty(t, cfg.Store.DSN)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("AUTH_REJECT_INVALID_KEYS", "true")

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.True(t, cfg.Auth.RejectInvalidKeys)
}
