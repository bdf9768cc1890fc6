package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/vspace/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 54*time.Second, cfg.Server.PingPeriod)
	assert.Equal(t, 2*time.Second, cfg.Client.SpawnRetryInterval)
	assert.Equal(t, "ws", cfg.Client.Transport)
}

func TestEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("CONFIG_ENV", "test")
	t.Setenv("VSPACE_SERVER_PORT", "9090")
	t.Setenv("VSPACE_CLIENT_SPACE", "lobby")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "lobby", cfg.Client.Space)
}
