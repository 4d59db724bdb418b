// Package config manages application configuration.
package config

import (
	"time"

	"github.com/roboco-io/imgsize/internal/diag"
	"github.com/roboco-io/imgsize/internal/fetch"
)

// Config represents the application configuration.
type Config struct {
	Fetch FetchConfig `yaml:"fetch"`
	Log   LogConfig   `yaml:"log"`
}

// FetchConfig controls how remote images are downloaded.
type FetchConfig struct {
	Timeout      time.Duration     `yaml:"timeout"` // 0 waits for the transport
	MaxRedirects int               `yaml:"max_redirects"`
	MaxBytes     int64             `yaml:"max_bytes"`
	UserAgent    string            `yaml:"user_agent"`
	Headers      map[string]string `yaml:"headers,omitempty"` // e.g. Authorization: Bearer ${CDN_TOKEN}
}

// LogConfig controls the diagnostic log.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			Timeout:      0,
			MaxRedirects: fetch.DefaultMaxRedirects,
			MaxBytes:     fetch.DefaultMaxBytes,
			UserAgent:    fetch.DefaultUserAgent,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// FetchOptions converts the fetch section into fetcher settings.
func (c *Config) FetchOptions() fetch.Config {
	return fetch.Config{
		Timeout:      c.Fetch.Timeout,
		MaxRedirects: c.Fetch.MaxRedirects,
		MaxBytes:     c.Fetch.MaxBytes,
		UserAgent:    c.Fetch.UserAgent,
		Headers:      c.Fetch.Headers,
	}
}

// LogOptions converts the log section into diagnostic log settings.
func (c *Config) LogOptions() diag.Options {
	return diag.Options{
		Level:  c.Log.Level,
		Format: c.Log.Format,
		File:   c.Log.File,
	}
}

// ApplyEnv overrides settings from IMGSIZE_* environment variables.
func (c *Config) ApplyEnv() {
	c.Log.Level = GetEnvOrDefault("IMGSIZE_LOG_LEVEL", c.Log.Level)
	c.Log.Format = GetEnvOrDefault("IMGSIZE_LOG_FORMAT", c.Log.Format)
	if GetEnvBool("IMGSIZE_VERBOSE") {
		c.Log.Level = "debug"
	}
}
