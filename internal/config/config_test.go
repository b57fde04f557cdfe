package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/webhookq")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 5*time.Second, cfg.ProcessInterval)
	assert.Equal(t, 60*time.Second, cfg.SweepInterval)
	assert.Equal(t, 300*time.Second, cfg.ClaimTimeout)
	assert.Equal(t, 30*time.Second, cfg.HandlerTimeout)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/webhookq")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("MAX_ATTEMPTS", "5")
	t.Setenv("HANDLER_TIMEOUT", "10")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.HandlerTimeout)
}

func TestLoadConfig_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfig_RejectsBadBounds(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/webhookq")
	t.Setenv("BATCH_SIZE", "0")

	_, err := LoadConfig()
	require.Error(t, err)
}
