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

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "./agentsight-data", cfg.Store.Path)
	assert.Equal(t, 0, cfg.Store.RetentionDays)
	assert.Equal(t, time.Hour, cfg.Store.CleanupInterval)
	assert.Equal(t, 64, cfg.Broadcast.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.Broadcast.WriteTimeout)
	assert.Equal(t, int64(1048576), cfg.Ingestion.MaxEventSize)
	assert.False(t, cfg.Ingestion.RateLimitEnabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "agentsight.events", cfg.NATS.Subject)
	assert.Equal(t, []string{"*"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
store:
  path: /var/lib/agentsight
  retention_days: 14
broadcast:
  queue_size: 256
ingestion:
  rate_limit_enabled: true
  rate_limit_requests: 500
logging:
  level: debug
  format: text
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/lib/agentsight", cfg.Store.Path)
	assert.Equal(t, 14, cfg.Store.RetentionDays)
	assert.Equal(t, 256, cfg.Broadcast.QueueSize)
	assert.True(t, cfg.Ingestion.RateLimitEnabled)
	assert.Equal(t, 500, cfg.Ingestion.RateLimitRequests)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Untouched keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(1048576), cfg.Ingestion.MaxEventSize)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
