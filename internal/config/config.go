// Package config loads polite-requester configuration from defaults, an
// optional TOML file, and environment variable overrides, in that order.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Sternrassler/polite-requester/pkg/batch"
	"github.com/Sternrassler/polite-requester/pkg/logging"
	"github.com/Sternrassler/polite-requester/pkg/requester"
)

// Config holds the full runtime configuration of an entry point.
type Config struct {
	// Port is the web server listen port.
	Port string

	// UserAgent identifies this client to target servers.
	UserAgent string

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string

	// Timeout applies per network attempt.
	Timeout time.Duration

	// MaxAttempts bounds the retry loop, including the initial attempt.
	MaxAttempts int

	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration

	// MaxBackoff is the backoff growth ceiling.
	MaxBackoff time.Duration

	// MaxTotal caps the batch size; zero or negative means unbounded.
	MaxTotal int

	// MaxConcurrency is the worker pool ceiling (requests above it are clamped).
	MaxConcurrency int

	// DefaultConcurrency is used when a request leaves concurrency unset.
	DefaultConcurrency int

	// DefaultDelay is the pacing delay applied when the caller omits one.
	DefaultDelay time.Duration

	// RatePerSecond adds a global rate gate across workers; zero disables it.
	RatePerSecond float64

	// ConfirmableCap makes MaxTotal a soft cap callers may confirm past.
	ConfirmableCap bool
}

// Default returns the capped web-facing configuration.
func Default() Config {
	return Config{
		Port:               "8080",
		UserAgent:          "PoliteRequester/1.0 (+mailto:ops@example.com)",
		LogLevel:           "info",
		Timeout:            10 * time.Second,
		MaxAttempts:        3,
		InitialBackoff:     1 * time.Second,
		MaxBackoff:         10 * time.Second,
		MaxTotal:           500,
		MaxConcurrency:     25,
		DefaultConcurrency: 5,
		DefaultDelay:       100 * time.Millisecond,
	}
}

// InteractiveDefault returns the configuration of the interactive CLI
// deployment: a high confirmable cap and more patient retries.
func InteractiveDefault() Config {
	return Config{
		UserAgent:          "PoliteRequester/1.0 (+mailto:ops@example.com)",
		LogLevel:           "warn",
		Timeout:            15 * time.Second,
		MaxAttempts:        5,
		InitialBackoff:     1 * time.Second,
		MaxBackoff:         60 * time.Second,
		MaxTotal:           10000,
		MaxConcurrency:     1000,
		DefaultConcurrency: 100,
		DefaultDelay:       time.Microsecond,
		ConfirmableCap:     true,
	}
}

// DefaultConfigPath returns ~/.polite-requester/config.toml, or empty when
// the user home directory is not accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".polite-requester", "config.toml")
	}
	return ""
}

// Load builds the configuration: defaults, then the TOML file at path, then
// environment variables. An empty path falls back to DefaultConfigPath; a
// file that does not exist is skipped.
func Load(path string) (Config, error) {
	return LoadFrom(Default(), path)
}

// LoadFrom is Load starting from the given base configuration.
func LoadFrom(base Config, path string) (Config, error) {
	cfg := base

	if path == "" {
		path = DefaultConfigPath()
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			fc, err := LoadFileConfig(path)
			if err != nil {
				return Config{}, fmt.Errorf("load config file %s: %w", path, err)
			}
			if err := ApplyFileConfig(&cfg, fc); err != nil {
				return Config{}, fmt.Errorf("apply config file %s: %w", path, err)
			}
		}
	}

	if err := ApplyEnv(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyEnv overrides cfg fields from environment variables.
func ApplyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.UserAgent = getEnv("USER_AGENT", cfg.UserAgent)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)

	var err error
	if cfg.Timeout, err = envDuration("REQUEST_TIMEOUT", cfg.Timeout); err != nil {
		return err
	}
	if cfg.InitialBackoff, err = envDuration("INITIAL_BACKOFF", cfg.InitialBackoff); err != nil {
		return err
	}
	if cfg.MaxBackoff, err = envDuration("MAX_BACKOFF", cfg.MaxBackoff); err != nil {
		return err
	}
	if cfg.DefaultDelay, err = envDuration("DEFAULT_DELAY", cfg.DefaultDelay); err != nil {
		return err
	}
	if cfg.MaxAttempts, err = envInt("MAX_ATTEMPTS", cfg.MaxAttempts); err != nil {
		return err
	}
	if cfg.MaxTotal, err = envInt("MAX_TOTAL", cfg.MaxTotal); err != nil {
		return err
	}
	if cfg.MaxConcurrency, err = envInt("MAX_CONCURRENCY", cfg.MaxConcurrency); err != nil {
		return err
	}
	if cfg.DefaultConcurrency, err = envInt("DEFAULT_CONCURRENCY", cfg.DefaultConcurrency); err != nil {
		return err
	}
	if cfg.RatePerSecond, err = envFloat("RATE_PER_SECOND", cfg.RatePerSecond); err != nil {
		return err
	}

	return nil
}

// RequesterConfig maps the configuration to an executor configuration.
func (c Config) RequesterConfig() requester.Config {
	return requester.Config{
		UserAgent: c.UserAgent,
		Timeout:   c.Timeout,
		Retry: requester.RetryConfig{
			MaxAttempts:       c.MaxAttempts,
			InitialBackoff:    c.InitialBackoff,
			MaxBackoff:        c.MaxBackoff,
			BackoffMultiplier: 2.0,
		},
	}
}

// Limits maps the configuration to orchestrator limits.
func (c Config) Limits() batch.Limits {
	return batch.Limits{
		MaxTotal:           c.MaxTotal,
		MaxConcurrency:     c.MaxConcurrency,
		DefaultConcurrency: c.DefaultConcurrency,
		DefaultDelay:       c.DefaultDelay,
		ConfirmableCap:     c.ConfirmableCap,
	}
}

// LoggingConfig maps the configuration to a logging setup.
func (c Config) LoggingConfig() logging.Config {
	lc := logging.DefaultConfig()
	lc.Level = logging.LogLevel(c.LogLevel)
	return lc
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s=%q: %w", key, v, err)
	}
	return d, nil
}
