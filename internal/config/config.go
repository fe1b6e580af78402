// Package config loads process configuration for the topiclog server from
// the environment.
//
// An optional .env file in the working directory is loaded first; variables
// already present in the environment take precedence over it. Every field
// has a default, so an empty environment yields a runnable configuration.
//
// Basic usage:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	reg, err := broker.New(cfg.BrokerOptions())
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/vnykmshr/topiclog/internal/broker"
	"github.com/vnykmshr/topiclog/internal/logging"
)

// Prefix is prepended to every environment variable name.
const Prefix = "TOPICLOG_"

// Config is the server configuration.
type Config struct {
	// HTTPAddr is the listen address of the HTTP transport
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// DefaultCapacity is the retention capacity of topics created without one
	DefaultCapacity int `env:"DEFAULT_CAPACITY" envDefault:"1000"`

	// MaxMessageSize is the largest accepted payload in bytes (0 = unlimited)
	MaxMessageSize int64 `env:"MAX_MESSAGE_SIZE" envDefault:"1048576"`

	// MaxAge expires records older than this (0 = disabled)
	MaxAge time.Duration `env:"MAX_AGE" envDefault:"0s"`

	// SweepInterval is how often expired records are removed
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"0s"`

	// PollTimeout is used by HTTP polls that do not pass a timeout
	PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"30s"`

	// MaxPollTimeout caps the timeout a client may request
	MaxPollTimeout time.Duration `env:"MAX_POLL_TIMEOUT" envDefault:"60s"`

	// ShutdownTimeout bounds graceful HTTP shutdown
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// LogLevel is one of debug, info, warn, error
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFormat is json or text
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Topics are created at startup with DefaultCapacity
	Topics []string `env:"TOPICS" envSeparator:","`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix})
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("http address is required")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.PollTimeout < 0 {
		return errors.New("poll timeout cannot be negative")
	}
	if c.MaxPollTimeout > 0 && c.PollTimeout > c.MaxPollTimeout {
		return fmt.Errorf("poll timeout %s exceeds max poll timeout %s", c.PollTimeout, c.MaxPollTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be > 0")
	}

	return c.BrokerOptions().Validate()
}

// Level returns the parsed log level.
func (c *Config) Level() logging.Level {
	lvl, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return logging.LevelInfo
	}
	return lvl
}

// BrokerOptions returns registry options derived from the configuration.
// Logger and MetricsCollector are left for the caller to set.
func (c *Config) BrokerOptions() *broker.Options {
	opts := broker.DefaultOptions()
	opts.DefaultCapacity = c.DefaultCapacity
	opts.MaxMessageSize = c.MaxMessageSize
	opts.MaxAge = c.MaxAge
	opts.SweepInterval = c.SweepInterval
	return opts
}
