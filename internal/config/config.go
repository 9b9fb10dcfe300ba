// Package config loads the application configuration (viper-backed YAML file
// with environment overrides) and initializes logging.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/justchokingaround/streamdig/internal/fetch"
	"github.com/justchokingaround/streamdig/internal/retry"
)

// Config is the root configuration.
type Config struct {
	HTTP      HTTPConfig      `mapstructure:"http"`
	Retry     RetryConfig     `mapstructure:"retry"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// HTTPConfig tunes the fetch layer.
type HTTPConfig struct {
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	UserAgent      string `mapstructure:"user_agent"`
	Debug          bool   `mapstructure:"debug"`
}

// RetryConfig tunes the retry handler's backoff schedule.
type RetryConfig struct {
	MaxAttempts       int     `mapstructure:"max_attempts"`
	InitialDelayMs    int     `mapstructure:"initial_delay_ms"`
	MaxDelayMs        int     `mapstructure:"max_delay_ms"`
	BackoffMultiplier float64 `mapstructure:"backoff_multiplier"`
	Jitter            bool    `mapstructure:"jitter"`
}

// RateLimitConfig tunes the per-provider cooldown handling.
type RateLimitConfig struct {
	// DefaultWindowSeconds is used when a 429 carries no Retry-After header.
	DefaultWindowSeconds int `mapstructure:"default_window_seconds"`
}

// LoggingConfig configures the slog/lumberjack logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// Load reads the configuration from cfgFile, or from the default location
// when cfgFile is empty. A missing config file is not an error; defaults
// apply. The viper instance is returned so callers can watch for changes.
func Load(cfgFile string) (*Config, *viper.Viper, error) {
	v := viper.New()

	v.SetDefault("http.timeout_seconds", 30)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.debug", false)
	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_delay_ms", 500)
	v.SetDefault("retry.max_delay_ms", 10000)
	v.SetDefault("retry.backoff_multiplier", 2.0)
	v.SetDefault("retry.jitter", true)
	v.SetDefault("rate_limit.default_window_seconds", 60)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("streamdig")
		v.SetConfigType("yaml")
		v.AddConfigPath(getConfigDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("STREAMDIG")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, v, nil
}

// FetchConfig maps the HTTP section onto the fetch layer's config.
func (c *Config) FetchConfig() fetch.ClientConfig {
	return fetch.ClientConfig{
		Timeout:   time.Duration(c.HTTP.TimeoutSeconds) * time.Second,
		UserAgent: c.HTTP.UserAgent,
		Debug:     c.HTTP.Debug,
	}
}

// RetryOptions maps the retry section onto the retry handler's config.
func (c *Config) RetryOptions() retry.Config {
	return retry.Config{
		MaxAttempts:  c.Retry.MaxAttempts,
		InitialDelay: time.Duration(c.Retry.InitialDelayMs) * time.Millisecond,
		MaxDelay:     time.Duration(c.Retry.MaxDelayMs) * time.Millisecond,
		Multiplier:   c.Retry.BackoffMultiplier,
		Jitter:       c.Retry.Jitter,
	}
}

// RateLimitWindow returns the default 429 cooldown window.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.DefaultWindowSeconds) * time.Second
}

// InitializeDirs creates the config and state directories if needed.
func InitializeDirs() error {
	for _, dir := range []string{getConfigDir(), getStateDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

func getConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "streamdig")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "streamdig")
}

func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "streamdig")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "streamdig")
}
