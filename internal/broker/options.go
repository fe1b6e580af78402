// Package broker provides configuration and validation for registry options.
// This file contains the Options struct and related functions.
package broker

import (
	"fmt"
	"time"

	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/metrics"
)

// Options configures registry behavior.
type Options struct {
	// DefaultCapacity is the retention capacity used when CreateTopic is given 0
	// Default: 1000 records
	DefaultCapacity int

	// MaxMessageSize is the maximum payload size in bytes accepted by Publish
	// Set to 0 for unlimited message size
	// Default: 1 MB
	MaxMessageSize int64

	// MaxAge is the age after which records are expired by the TTL sweeper
	// Set to 0 to disable age-based retention (count-based retention always applies)
	// Default: 0
	MaxAge time.Duration

	// SweepInterval is how often the background sweeper runs when MaxAge is set
	// Set to 0 to disable the background sweeper (Sweep can still be called manually)
	// Default: 0
	SweepInterval time.Duration

	// Logger for structured logging (nil = no logging)
	Logger logging.Logger

	// MetricsCollector for collecting registry metrics (nil = no metrics)
	MetricsCollector MetricsCollector
}

// MetricsCollector defines the interface for recording registry metrics.
type MetricsCollector interface {
	RecordPublish(payloadSize int, duration time.Duration)
	RecordPoll(count, totalPayloadSize int, duration time.Duration)
	RecordPollTimeout(duration time.Duration)
	RecordPublishError()
	RecordPollError()
	RecordOutOfRange()
	RecordSeek()
	RecordEviction(count int)
	RecordSweep(expired int, duration time.Duration)
	UpdateRegistryState(topics, retained uint64)
}

// DefaultOptions returns sensible defaults for registry configuration.
func DefaultOptions() *Options {
	return &Options{
		DefaultCapacity:  1000,
		MaxMessageSize:   1024 * 1024, // 1 MB
		MaxAge:           0,           // No age-based retention by default
		SweepInterval:    0,
		Logger:           logging.NoopLogger{},    // No logging by default
		MetricsCollector: metrics.NoopCollector{}, // No metrics by default
	}
}

// Validate checks if the options are valid.
func (o *Options) Validate() error {
	if o.DefaultCapacity <= 0 {
		return fmt.Errorf("%w: default capacity must be > 0, got %d", ErrInvalidCapacity, o.DefaultCapacity)
	}
	if o.MaxMessageSize < 0 {
		return fmt.Errorf("max message size cannot be negative")
	}
	if o.MaxAge < 0 {
		return fmt.Errorf("max age cannot be negative")
	}
	if o.SweepInterval < 0 {
		return fmt.Errorf("sweep interval cannot be negative")
	}
	if o.SweepInterval > 0 && o.MaxAge == 0 {
		return fmt.Errorf("sweep interval requires max age to be set")
	}
	return nil
}
