package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 15*time.Second, cfg.Sync.HeartbeatInterval)
	require.Equal(t, 10, cfg.Sync.MaxRetries)
	require.Equal(t, time.Second, cfg.Sync.BackoffMin)
	require.Equal(t, 5*time.Second, cfg.Sync.BackoffMax)
	require.Equal(t, 20*time.Second, cfg.Sync.ConnectTimeout)
	require.Equal(t, 30*time.Second, cfg.Polling.Interval)
	require.Equal(t, 50, cfg.Polling.Limit)
	require.Equal(t, "device.json", cfg.Device.IDFile)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `
environment: production
backend:
  rest_url: https://orders.example.com/api
  socket_url: wss://orders.example.com/socket
sync:
  heartbeat_interval: 5s
  max_retries: 3
polling:
  interval: 10s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "https://orders.example.com/api", cfg.Backend.RestURL)
	require.Equal(t, "wss://orders.example.com/socket", cfg.Backend.SocketURL)
	require.Equal(t, 5*time.Second, cfg.Sync.HeartbeatInterval)
	require.Equal(t, 3, cfg.Sync.MaxRetries)
	require.Equal(t, 10*time.Second, cfg.Polling.Interval)

	// Untouched keys keep their defaults.
	require.Equal(t, time.Second, cfg.Sync.BackoffMin)
}
