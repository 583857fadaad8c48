package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Queue.BatchSize)
	assert.Equal(t, 3, cfg.Queue.DefaultMaxAttempts)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	assert.InDelta(t, 0.5, cfg.Campaign.ErrorRatioThreshold, 0.0001)
	assert.Equal(t, 15*time.Minute, cfg.Queue.StaleAfter)
	assert.Same(t, cfg, Global)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("QUEUE_BATCH_SIZE", "25")
	t.Setenv("QUEUE_BACKOFF_BASE", "5")
	t.Setenv("CAMPAIGN_SEND_DELAY", "250ms")
	t.Setenv("WEBHOOK_ASYNC", "on")
	t.Setenv("INBOX_DEFAULT_PRIORITY", "7")
	t.Setenv("QUEUE_STALE_AFTER", "2h")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Queue.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.Queue.BackoffBase)
	assert.Equal(t, 250*time.Millisecond, cfg.Campaign.SendDelay)
	assert.True(t, cfg.Webhook.Async)
	assert.Equal(t, 7, cfg.Inbox.DefaultPriority)
	assert.Equal(t, 2*time.Hour, cfg.Queue.StaleAfter)
}
