package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Monitor config
	assert.Equal(t, 60*time.Second, cfg.Monitor.AdTimeout.Std())
	assert.Equal(t, 5*time.Second, cfg.Monitor.ActionTimeout.Std())
	assert.Equal(t, []string{"*://gql.twitch.tv/**"}, cfg.Monitor.OriginPatterns)
	assert.Equal(t, "RecordAdEvent", cfg.Monitor.OperationMarker)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":                "9000",
		"HOST":                "127.0.0.1",
		"LOG_LEVEL":           "debug",
		"LOG_DEV":             "true",
		"RATE_LIMIT_RPS":      "500",
		"RATE_LIMIT_BURST":    "1000",
		"RATE_LIMIT_ENABLED":  "false",
		"STORAGE_DRIVER":      "memory",
		"AD_TIMEOUT":          "90s",
		"ACTION_TIMEOUT":      "2s",
		"ORIGIN_PATTERNS":     "*://gql.twitch.tv/**,*://example.com/gql",
		"AD_OPERATION_MARKER": "AdEvent",
		"HOST_BRIDGE":         "http",
		"HOST_URL":            "http://bridge:9000",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, 90*time.Second, cfg.Monitor.AdTimeout.Std())
	assert.Equal(t, 2*time.Second, cfg.Monitor.ActionTimeout.Std())
	assert.Equal(t, []string{"*://gql.twitch.tv/**", "*://example.com/gql"}, cfg.Monitor.OriginPatterns)
	assert.Equal(t, "AdEvent", cfg.Monitor.OperationMarker)
	assert.Equal(t, "http", cfg.Host.Bridge)
	assert.Equal(t, "http://bridge:9000", cfg.Host.URL)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown storage driver", "STORAGE_DRIVER", "redis"},
		{"unknown bridge", "HOST_BRIDGE", "grpc"},
		{"zero ad timeout", "AD_TIMEOUT", "0s"},
		{"malformed duration", "ACTION_TIMEOUT", "soon"},
		{"bad origin pattern", "ORIGIN_PATTERNS", "*://[gql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)

			// LoadOrDefault never fails
			cfg := LoadOrDefault()
			assert.Equal(t, Default(), cfg)
		})
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admon.yaml")
	content := `
server:
  port: "7000"
storage:
  driver: memory
monitor:
  operation_marker: CustomAdEvent
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("HOST", "10.0.0.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "CustomAdEvent", cfg.Monitor.OperationMarker)
	// Environment wins over file and defaults survive
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 60*time.Second, cfg.Monitor.AdTimeout.Std())
}

func TestLoadTOMLFileEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admon.toml")
	content := `
[server]
port = "7100"

[host]
bridge = "http"
url = "http://file-host:1"

[monitor]
ad_timeout = "90s"
action_timeout = "3s"

[storage]
load_window = "45s"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(FileEnv, path)
	t.Setenv("PORT", "7200")
	t.Setenv("ACTION_TIMEOUT", "4s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7200", cfg.Server.Port)
	assert.Equal(t, "http", cfg.Host.Bridge)
	assert.Equal(t, "http://file-host:1", cfg.Host.URL)
	assert.Equal(t, 90*time.Second, cfg.Monitor.AdTimeout.Std())
	assert.Equal(t, 4*time.Second, cfg.Monitor.ActionTimeout.Std())
	assert.Equal(t, 45*time.Second, cfg.Storage.LoadWindow.Std())
}

func TestLoadTOMLFileBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "admon.toml")
	content := `
[monitor]
ad_timeout = "soon"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv(FileEnv, path)

	_, err := Load()
	assert.Error(t, err)
}

func TestDurationText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Std())

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	assert.Error(t, d.UnmarshalText([]byte("90")))
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		t.Setenv(FileEnv, filepath.Join(dir, "absent.yaml"))
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "admon.ini")
		require.NoError(t, os.WriteFile(path, []byte("port=1"), 0o600))
		t.Setenv(FileEnv, path)
		_, err := Load()
		assert.Error(t, err)
	})
}
