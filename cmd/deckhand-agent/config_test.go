package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Config Loading Tests
// =============================================================================

func TestLoadConfig_DefaultValues(t *testing.T) {
	// Clear environment
	clearEnv(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8488, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "data/deckhand.db", cfg.History.DSN)
	assert.Equal(t, "", cfg.Auth.Token)
	assert.Equal(t, time.Hour, cfg.Prune.Interval)
	assert.Equal(t, 720*time.Hour, cfg.Prune.Retention)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadConfig_FromFile(t *testing.T) {
	clearEnv(t)

	// Create temp config file
	configContent := `
server:
  host: "127.0.0.1"
  port: 9000
  read_timeout: 60s
  write_timeout: 60s
  shutdown_timeout: 15s

docker:
  mode: "ssh"
  host: "build-box.internal"
  ssh_user: "deploy"
  ssh_key_file: "/etc/deckhand/id_ed25519"

history:
  dsn: "/tmp/test.db"

auth:
  token: "agent-secret"

prune:
  interval: 30m
  retention: 168h

log:
  level: "debug"
  format: "text"
`
	tmpFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(configContent), 0644))

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "ssh", cfg.Docker.Mode)
	assert.Equal(t, "build-box.internal", cfg.Docker.Host)
	assert.Equal(t, "deploy", cfg.Docker.SSHUser)
	assert.Equal(t, "/etc/deckhand/id_ed25519", cfg.Docker.SSHKeyFile)
	assert.Equal(t, "/tmp/test.db", cfg.History.DSN)
	assert.Equal(t, "agent-secret", cfg.Auth.Token)
	assert.Equal(t, 30*time.Minute, cfg.Prune.Interval)
	assert.Equal(t, 168*time.Hour, cfg.Prune.Retention)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoadConfig_EnvironmentOverride(t *testing.T) {
	clearEnv(t)

	// Set environment variables
	t.Setenv("DECKHAND_AGENT_SERVER_HOST", "192.168.1.1")
	t.Setenv("DECKHAND_AGENT_SERVER_PORT", "3000")
	t.Setenv("DECKHAND_AGENT_HISTORY_DSN", "/custom/path.db")
	t.Setenv("DECKHAND_AGENT_AUTH_TOKEN", "env-secret")
	t.Setenv("DECKHAND_AGENT_LOG_LEVEL", "warn")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "/custom/path.db", cfg.History.DSN)
	assert.Equal(t, "env-secret", cfg.Auth.Token)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadConfig_FileNotFound_UsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig("/nonexistent/path/config.yaml")
	require.NoError(t, err) // Should not error, just use defaults

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8488, cfg.Server.Port)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	clearEnv(t)

	// Create invalid config file
	tmpFile := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("invalid: yaml: content: [[["), 0644))

	_, err := LoadConfig(tmpFile)
	assert.Error(t, err)
}

// =============================================================================
// Logger Setup Tests
// =============================================================================

func TestSetupLogger_JSONFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_TextFormat(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}

	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

func TestSetupLogger_InvalidLevel(t *testing.T) {
	cfg := &Config{
		Log: LogConfig{
			Level:  "invalid",
			Format: "json",
		},
	}

	// Should fall back to info level, not panic
	logger := SetupLogger(cfg)
	assert.NotNil(t, logger)
}

// =============================================================================
// Config Validation Tests
// =============================================================================

func TestConfig_Address(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8488,
		},
	}

	assert.Equal(t, "localhost:8488", cfg.Server.Address())
}

// =============================================================================
// Test Helpers
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	envVars := []string{
		"DECKHAND_AGENT_SERVER_HOST",
		"DECKHAND_AGENT_SERVER_PORT",
		"DECKHAND_AGENT_DOCKER_MODE",
		"DECKHAND_AGENT_DOCKER_HOST",
		"DECKHAND_AGENT_HISTORY_DSN",
		"DECKHAND_AGENT_AUTH_TOKEN",
		"DECKHAND_AGENT_LOG_LEVEL",
		"DECKHAND_AGENT_LOG_FORMAT",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
