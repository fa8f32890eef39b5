package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/deckhand-ci/deckhand/internal/shell/docker"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds the tool configuration shared by every subcommand.
type Config struct {
	Docker   docker.EngineConfig `mapstructure:"docker"`
	Git      GitConfig           `mapstructure:"git"`
	Registry RegistryConfig      `mapstructure:"registry"`
	History  HistoryConfig       `mapstructure:"history"`
	Log      LogConfig           `mapstructure:"log"`
}

// GitConfig holds clone credentials.
type GitConfig struct {
	// Token authenticates HTTPS clones. Usually set via DECKHAND_GIT_TOKEN.
	Token string `mapstructure:"token"`
}

// RegistryConfig carries push credentials for the image subcommand.
type RegistryConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Server   string `mapstructure:"server"`
}

// HistoryConfig configures the deployment history store.
type HistoryConfig struct {
	// DSN is the SQLite database path. Empty disables history.
	DSN string `mapstructure:"dsn"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads configuration from file and environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("docker.mode", "")
	v.SetDefault("docker.host", "")
	v.SetDefault("docker.ssh_user", "")
	v.SetDefault("docker.ssh_key_file", "")
	v.SetDefault("docker.ssh_socket", "")
	v.SetDefault("git.token", "")
	v.SetDefault("registry.username", "")
	v.SetDefault("registry.password", "")
	v.SetDefault("registry.server", "")
	v.SetDefault("history.dsn", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	// Load from file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// Only return error if file was explicitly specified and is invalid
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
			// File not found is OK, we'll use defaults
		}
	}

	// Enable environment variable overrides
	v.SetEnvPrefix("DECKHAND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger with the configured level and format. The CLI
// logs to stderr; stdout carries command results.
func SetupLogger(cfg *Config) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Log.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
