package config

import (
	"fmt"
	"os"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to stay TOML friendly.
type FileConfig struct {
	Port               string  `toml:"port"`
	UserAgent          string  `toml:"user_agent"`
	LogLevel           string  `toml:"log_level"`
	RequestTimeout     string  `toml:"request_timeout"`
	MaxAttempts        int     `toml:"max_attempts"`
	InitialBackoff     string  `toml:"initial_backoff"`
	MaxBackoff         string  `toml:"max_backoff"`
	MaxTotal           int     `toml:"max_total"`
	MaxConcurrency     int     `toml:"max_concurrency"`
	DefaultConcurrency int     `toml:"default_concurrency"`
	DefaultDelay       string  `toml:"default_delay"`
	RatePerSecond      float64 `toml:"rate_per_second"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// ApplyFileConfig overrides cfg with the non-zero fields of fc.
func ApplyFileConfig(cfg *Config, fc FileConfig) error {
	if fc.Port != "" {
		cfg.Port = fc.Port
	}
	if fc.UserAgent != "" {
		cfg.UserAgent = fc.UserAgent
	}
	if fc.LogLevel != "" {
		cfg.LogLevel = fc.LogLevel
	}
	if fc.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.MaxAttempts
	}
	if fc.MaxTotal != 0 {
		cfg.MaxTotal = fc.MaxTotal
	}
	if fc.MaxConcurrency > 0 {
		cfg.MaxConcurrency = fc.MaxConcurrency
	}
	if fc.DefaultConcurrency > 0 {
		cfg.DefaultConcurrency = fc.DefaultConcurrency
	}
	if fc.RatePerSecond > 0 {
		cfg.RatePerSecond = fc.RatePerSecond
	}

	if err := setDuration(fc.RequestTimeout, "request_timeout", &cfg.Timeout); err != nil {
		return err
	}
	if err := setDuration(fc.InitialBackoff, "initial_backoff", &cfg.InitialBackoff); err != nil {
		return err
	}
	if err := setDuration(fc.MaxBackoff, "max_backoff", &cfg.MaxBackoff); err != nil {
		return err
	}
	if err := setDuration(fc.DefaultDelay, "default_delay", &cfg.DefaultDelay); err != nil {
		return err
	}

	return nil
}

func setDuration(value, field string, dst *time.Duration) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", field, value, err)
	}
	*dst = d
	return nil
}
