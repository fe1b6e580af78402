// Package topiclog provides an in-memory publish/subscribe topic log.
//
// A Registry holds named topics. Each topic is an append-only log of
// messages with dense, never-reused offsets and bounded FIFO retention.
// Producers must be registered before they publish; subscribers must be
// registered before they poll, and each subscriber owns a Cursor that it
// passes to every Poll call. Poll blocks until new data arrives, the
// timeout elapses, or the context is done.
//
// Example usage:
//
//	reg, err := topiclog.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer reg.Close()
//
//	_ = reg.CreateTopic("orders", 100)
//	_ = reg.RegisterProducer("orders", "checkout")
//	cur, _ := reg.RegisterSubscriber("orders", "billing")
//
//	// Publish a message
//	offset, err := reg.Publish("orders", "checkout", []byte("order #1"))
//
//	// Wait up to five seconds for new messages
//	msgs, cur, err := reg.Poll(ctx, cur, 5*time.Second)
//	for _, m := range msgs {
//	    fmt.Printf("%d: %s\n", m.Offset, m.Payload)
//	}
package topiclog

import (
	"context"
	"log/slog"
	"time"

	"github.com/vnykmshr/topiclog/internal/broker"
	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/metrics"
)

// Version is the current version of topiclog.
// This is the single source of truth for the application version.
const Version = "0.1.0"

// WaitForever makes Poll block until data arrives or the context is done.
const WaitForever = broker.WaitForever

// Registry is a thread-safe set of named topics.
type Registry struct {
	r *broker.Registry
}

// Message is a record retained by a topic.
type Message = broker.Record

// Cursor is a subscriber's read position. Offset is the last consumed offset.
type Cursor = broker.Cursor

// TopicStats contains statistics about a single topic.
type TopicStats = broker.TopicStats

// OutOfRangeError reports a cursor that fell behind a topic's retention window.
// It matches ErrOffsetOutOfRange with errors.Is.
type OutOfRangeError = broker.OutOfRangeError

// StreamHandler is called for each message in a stream.
// Return an error to stop streaming.
type StreamHandler = broker.StreamHandler

// SubscribeOption configures RegisterSubscriber.
type SubscribeOption = broker.SubscribeOption

// TopicOption configures CreateTopic.
type TopicOption = broker.TopicOption

// Errors returned by Registry operations. Use errors.Is to test for them.
var (
	ErrTopicExists             = broker.ErrTopicExists
	ErrTopicNotFound           = broker.ErrTopicNotFound
	ErrProducerNotAuthorized   = broker.ErrProducerNotAuthorized
	ErrSubscriberNotAuthorized = broker.ErrSubscriberNotAuthorized
	ErrOffsetOutOfRange        = broker.ErrOffsetOutOfRange
	ErrInvalidTopic            = broker.ErrInvalidTopic
	ErrInvalidActor            = broker.ErrInvalidActor
	ErrInvalidCapacity         = broker.ErrInvalidCapacity
	ErrMessageTooLarge         = broker.ErrMessageTooLarge
	ErrRegistryClosed          = broker.ErrRegistryClosed
)

// FromBeginning delivers the full retained history on the first poll (default).
func FromBeginning() SubscribeOption { return broker.FromBeginning() }

// FromLatest delivers only messages published after registration.
func FromLatest() SubscribeOption { return broker.FromLatest() }

// Options configures registry behavior.
type Options struct {
	// DefaultCapacity is the retention capacity used when CreateTopic is given 0
	// Default: 1000 messages
	DefaultCapacity int

	// MaxMessageSize is the maximum payload size in bytes (0 = unlimited)
	// Default: 1 MB
	MaxMessageSize int64

	// MaxAge expires messages older than this (0 = disabled)
	// Default: 0
	MaxAge time.Duration

	// SweepInterval runs the age-based sweep in the background (0 = disabled)
	// Default: 0
	SweepInterval time.Duration

	// Logger for structured logging (nil = no logging)
	// Default: no logging
	Logger Logger

	// MetricsCollector for collecting registry metrics (nil = no metrics)
	// Default: no metrics
	MetricsCollector MetricsCollector
}

// MetricsCollector defines the interface for recording registry metrics.
type MetricsCollector = broker.MetricsCollector

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, fields ...LogField)
	Info(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
}

// LogField represents a structured log field.
type LogField struct {
	Key   string
	Value any
}

// MetricsSnapshot is a point-in-time view of registry metrics.
type MetricsSnapshot = metrics.Snapshot

// NewMetricsCollector creates a new metrics collector.
// The name identifies metrics from this specific registry.
func NewMetricsCollector(name string) *metrics.Collector {
	return metrics.NewCollector(name)
}

// GetMetricsSnapshot returns a snapshot of current metrics from a collector.
func GetMetricsSnapshot(collector MetricsCollector) *MetricsSnapshot {
	if c, ok := collector.(*metrics.Collector); ok {
		return c.GetSnapshot()
	}
	return nil
}

// DefaultOptions returns sensible defaults for registry configuration.
func DefaultOptions() *Options {
	d := broker.DefaultOptions()
	return &Options{
		DefaultCapacity: d.DefaultCapacity,
		MaxMessageSize:  d.MaxMessageSize,
		MaxAge:          d.MaxAge,
		SweepInterval:   d.SweepInterval,
	}
}

// New creates an empty registry. A nil opts uses DefaultOptions.
func New(opts *Options) (*Registry, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	r, err := broker.New(&broker.Options{
		DefaultCapacity:  opts.DefaultCapacity,
		MaxMessageSize:   opts.MaxMessageSize,
		MaxAge:           opts.MaxAge,
		SweepInterval:    opts.SweepInterval,
		Logger:           convertLogger(opts.Logger),
		MetricsCollector: opts.MetricsCollector,
	})
	if err != nil {
		return nil, err
	}

	return &Registry{r: r}, nil
}

// WithTopicName attaches a display name to a topic.
func WithTopicName(name string) TopicOption { return broker.WithTopicName(name) }

// CreateTopic registers a topic retaining at most capacity messages.
// A capacity of 0 uses Options.DefaultCapacity.
func (r *Registry) CreateTopic(id string, capacity int, opts ...TopicOption) error {
	return r.r.CreateTopic(id, capacity, opts...)
}

// RemoveTopic deletes a topic. Blocked polls on it return ErrTopicNotFound.
// The id cannot be used again for the life of the registry.
func (r *Registry) RemoveTopic(id string) error {
	return r.r.RemoveTopic(id)
}

// RegisterProducer authorizes producerID to publish to the topic.
func (r *Registry) RegisterProducer(topicID, producerID string) error {
	return r.r.RegisterProducer(topicID, producerID)
}

// UnregisterProducer revokes producerID's authorization.
func (r *Registry) UnregisterProducer(topicID, producerID string) error {
	return r.r.UnregisterProducer(topicID, producerID)
}

// RegisterSubscriber authorizes subscriberID to poll the topic and returns
// its initial cursor.
func (r *Registry) RegisterSubscriber(topicID, subscriberID string, opts ...SubscribeOption) (Cursor, error) {
	return r.r.RegisterSubscriber(topicID, subscriberID, opts...)
}

// UnregisterSubscriber revokes subscriberID's authorization.
func (r *Registry) UnregisterSubscriber(topicID, subscriberID string) error {
	return r.r.UnregisterSubscriber(topicID, subscriberID)
}

// Publish appends payload to the topic and returns its offset.
func (r *Registry) Publish(topicID, producerID string, payload []byte) (int64, error) {
	return r.r.Publish(topicID, producerID, payload)
}

// Poll returns the messages after cur, waiting up to timeout for new data,
// and the cursor to use next. A timeout yields no messages and no error.
func (r *Registry) Poll(ctx context.Context, cur Cursor, timeout time.Duration) ([]Message, Cursor, error) {
	return r.r.Poll(ctx, cur, timeout)
}

// PollMax is Poll returning at most maxMessages messages (0 = unlimited).
func (r *Registry) PollMax(ctx context.Context, cur Cursor, timeout time.Duration, maxMessages int) ([]Message, Cursor, error) {
	return r.r.PollMax(ctx, cur, timeout, maxMessages)
}

// Stream calls handler for every message after cur until ctx is done or an
// error occurs, and returns the cursor of the last handled message.
func (r *Registry) Stream(ctx context.Context, cur Cursor, handler StreamHandler) (Cursor, error) {
	return r.r.Stream(ctx, cur, handler)
}

// SeekToOldest positions cur before the oldest retained message.
func (r *Registry) SeekToOldest(cur Cursor) (Cursor, error) {
	return r.r.SeekToOldest(cur)
}

// SeekToLatest positions cur after the newest message.
func (r *Registry) SeekToLatest(cur Cursor) (Cursor, error) {
	return r.r.SeekToLatest(cur)
}

// SeekToTimestamp positions cur at the first message enqueued at or after t.
func (r *Registry) SeekToTimestamp(cur Cursor, t time.Time) (Cursor, error) {
	return r.r.SeekToTimestamp(cur, t)
}

// Sweep expires messages older than Options.MaxAge and returns how many were removed.
func (r *Registry) Sweep() int {
	return r.r.Sweep()
}

// Topics returns the topic ids in sorted order.
func (r *Registry) Topics() []string {
	return r.r.Topics()
}

// TopicStats returns current statistics for a topic.
func (r *Registry) TopicStats(id string) (TopicStats, error) {
	return r.r.TopicStats(id)
}

// Close closes every topic and wakes all blocked polls.
func (r *Registry) Close() error {
	return r.r.Close()
}

// NewSlogLogger returns a Logger that writes through l (nil = slog.Default()).
func NewSlogLogger(l *slog.Logger) Logger {
	return &slogAdapter{l: logging.NewSlogLogger(l)}
}

type slogAdapter struct {
	l *logging.SlogLogger
}

func (a *slogAdapter) Debug(msg string, fields ...LogField) { a.l.Debug(msg, toInternal(fields)...) }
func (a *slogAdapter) Info(msg string, fields ...LogField)  { a.l.Info(msg, toInternal(fields)...) }
func (a *slogAdapter) Warn(msg string, fields ...LogField)  { a.l.Warn(msg, toInternal(fields)...) }
func (a *slogAdapter) Error(msg string, fields ...LogField) { a.l.Error(msg, toInternal(fields)...) }

func toInternal(fields []LogField) []logging.Field {
	result := make([]logging.Field, len(fields))
	for i, f := range fields {
		result[i] = logging.F(f.Key, f.Value)
	}
	return result
}

func convertLogger(l Logger) logging.Logger {
	if l == nil {
		return logging.NoopLogger{}
	}
	if a, ok := l.(*slogAdapter); ok {
		return a.l
	}
	return &loggerAdapter{l: l}
}

// loggerAdapter adapts public Logger to internal logging.Logger
type loggerAdapter struct {
	l Logger
}

func (a *loggerAdapter) Debug(msg string, fields ...logging.Field) {
	a.l.Debug(msg, convertFields(fields)...)
}

func (a *loggerAdapter) Info(msg string, fields ...logging.Field) {
	a.l.Info(msg, convertFields(fields)...)
}

func (a *loggerAdapter) Warn(msg string, fields ...logging.Field) {
	a.l.Warn(msg, convertFields(fields)...)
}

func (a *loggerAdapter) Error(msg string, fields ...logging.Field) {
	a.l.Error(msg, convertFields(fields)...)
}

func convertFields(fields []logging.Field) []LogField {
	result := make([]LogField, len(fields))
	for i, f := range fields {
		result[i] = LogField{Key: f.Key, Value: f.Value}
	}
	return result
}
