package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "*", cfg.Server.AllowedOrigins)
	assert.Equal(t, 10, cfg.Server.ShutdownTimeout)
	assert.Equal(t, 60, cfg.Relay.WindowSeconds)
	assert.Equal(t, "sos-chime", cfg.Relay.Sound)
	assert.Equal(t, "@every 1m", cfg.Stats.Schedule)
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	// A missing config file is logged and ignored; defaults still apply.
	cfg, err := LoadConfig("/nonexistent/wisecare.yaml")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
}
