package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Policy    PolicyConfig
	Retention RetentionConfig
	Provider  ProviderConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"5000"`
	Host string `envconfig:"HOST" default:"127.0.0.1"`
}

// StorageConfig holds session database configuration.
type StorageConfig struct {
	Path string `envconfig:"DB_PATH" default:"app_usage.db"`
}

// PolicyConfig locates the persisted settings document.
type PolicyConfig struct {
	Path string `envconfig:"SETTINGS_PATH" default:"settings.json"`
}

// RetentionConfig controls the retention sweeper.
type RetentionConfig struct {
	Horizon  time.Duration `envconfig:"RETENTION" default:"168h"`
	Interval time.Duration `envconfig:"SWEEP_INTERVAL" default:"1h"`
}

// ProviderConfig selects the snapshot provider.
type ProviderConfig struct {
	Kind    string        `envconfig:"PROVIDER" default:"x11"`
	Timeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"2s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "5000",
			Host: "127.0.0.1",
		},
		Storage: StorageConfig{
			Path: "app_usage.db",
		},
		Policy: PolicyConfig{
			Path: "settings.json",
		},
		Retention: RetentionConfig{
			Horizon:  7 * 24 * time.Hour,
			Interval: time.Hour,
		},
		Provider: ProviderConfig{
			Kind:    "x11",
			Timeout: 2 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
			Enabled:           true,
		},
	}
}

// Validate rejects values the sweeper and provider cannot run with.
func (c *Config) Validate() error {
	if c.Retention.Horizon <= 0 {
		return fmt.Errorf("RETENTION must be positive, got %s", c.Retention.Horizon)
	}
	if c.Retention.Interval <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL must be positive, got %s", c.Retention.Interval)
	}
	switch c.Provider.Kind {
	case "x11", "static":
	default:
		return fmt.Errorf("unknown PROVIDER %q", c.Provider.Kind)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
