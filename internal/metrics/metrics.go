// Package metrics provides in-process metrics collection for topiclog.
//
// The Collector keeps lock-free counters and a coarse duration histogram,
// and exposes a point-in-time Snapshot that can be rendered by the HTTP
// transport or the CLI.
//
// Usage:
//
//	collector := metrics.NewCollector("broker")
//
//	opts := broker.DefaultOptions()
//	opts.MetricsCollector = collector
//
//	snapshot := collector.GetSnapshot()
package metrics

import (
	"math"
	"sync/atomic"
	"time"
)

// Collector tracks broker metrics.
type Collector struct {
	name string

	// Operation counters
	publishTotal  atomic.Uint64
	pollTotal     atomic.Uint64
	pollEmpty     atomic.Uint64
	publishErrors atomic.Uint64
	pollErrors    atomic.Uint64
	outOfRange    atomic.Uint64
	seekTotal     atomic.Uint64

	// Payload metrics
	publishBytes     atomic.Uint64
	deliveredRecords atomic.Uint64
	deliveredBytes   atomic.Uint64

	// Duration histograms (stored as buckets for simplicity)
	publishDurations *durationHistogram
	pollDurations    *durationHistogram

	// Retention metrics
	evicted      atomic.Uint64
	expired      atomic.Uint64
	sweepsTotal  atomic.Uint64
	lastSweepSec atomic.Int64 // Unix seconds
	lastSweepDur atomic.Int64 // nanoseconds

	// Registry state (updated on topic changes and sweeps)
	topics   atomic.Uint64
	retained atomic.Uint64
}

// NewCollector creates a new metrics collector.
func NewCollector(name string) *Collector {
	return &Collector{
		name:             name,
		publishDurations: newDurationHistogram(),
		pollDurations:    newDurationHistogram(),
	}
}

// RecordPublish records a successful publish.
func (c *Collector) RecordPublish(payloadSize int, duration time.Duration) {
	c.publishTotal.Add(1)
	c.publishBytes.Add(uint64(payloadSize))
	c.publishDurations.observe(duration)
}

// RecordPoll records a poll that returned records.
func (c *Collector) RecordPoll(count, totalPayloadSize int, duration time.Duration) {
	c.pollTotal.Add(1)
	c.deliveredRecords.Add(uint64(count))
	c.deliveredBytes.Add(uint64(totalPayloadSize))
	c.pollDurations.observe(duration)
}

// RecordPollTimeout records a poll that returned no records within its deadline.
func (c *Collector) RecordPollTimeout(duration time.Duration) {
	c.pollTotal.Add(1)
	c.pollEmpty.Add(1)
	c.pollDurations.observe(duration)
}

// RecordPublishError records a rejected publish.
func (c *Collector) RecordPublishError() {
	c.publishErrors.Add(1)
}

// RecordPollError records a failed poll.
func (c *Collector) RecordPollError() {
	c.pollErrors.Add(1)
}

// RecordOutOfRange records a poll whose cursor fell behind retention.
func (c *Collector) RecordOutOfRange() {
	c.outOfRange.Add(1)
}

// RecordSeek records an explicit cursor reposition.
func (c *Collector) RecordSeek() {
	c.seekTotal.Add(1)
}

// RecordEviction records records dropped by count-based retention.
func (c *Collector) RecordEviction(count int) {
	c.evicted.Add(uint64(count))
}

// RecordSweep records a TTL sweep pass.
func (c *Collector) RecordSweep(expired int, duration time.Duration) {
	c.sweepsTotal.Add(1)
	c.expired.Add(uint64(expired))
	c.lastSweepSec.Store(time.Now().Unix())
	c.lastSweepDur.Store(int64(duration))
}

// UpdateRegistryState updates registry state metrics.
func (c *Collector) UpdateRegistryState(topics, retained uint64) {
	c.topics.Store(topics)
	c.retained.Store(retained)
}

// GetSnapshot returns a snapshot of current metrics.
func (c *Collector) GetSnapshot() *Snapshot {
	return &Snapshot{
		Name:               c.name,
		PublishTotal:       c.publishTotal.Load(),
		PollTotal:          c.pollTotal.Load(),
		PollEmpty:          c.pollEmpty.Load(),
		PublishErrors:      c.publishErrors.Load(),
		PollErrors:         c.pollErrors.Load(),
		OutOfRange:         c.outOfRange.Load(),
		SeekTotal:          c.seekTotal.Load(),
		PublishBytes:       c.publishBytes.Load(),
		DeliveredRecords:   c.deliveredRecords.Load(),
		DeliveredBytes:     c.deliveredBytes.Load(),
		PublishDurationP50: c.publishDurations.percentile(0.50),
		PublishDurationP95: c.publishDurations.percentile(0.95),
		PublishDurationP99: c.publishDurations.percentile(0.99),
		PollDurationP50:    c.pollDurations.percentile(0.50),
		PollDurationP95:    c.pollDurations.percentile(0.95),
		PollDurationP99:    c.pollDurations.percentile(0.99),
		Evicted:            c.evicted.Load(),
		Expired:            c.expired.Load(),
		SweepsTotal:        c.sweepsTotal.Load(),
		LastSweepUnixSec:   c.lastSweepSec.Load(),
		LastSweepDuration:  time.Duration(c.lastSweepDur.Load()),
		Topics:             c.topics.Load(),
		Retained:           c.retained.Load(),
	}
}

// Reset resets all metrics (useful for testing).
func (c *Collector) Reset() {
	c.publishTotal.Store(0)
	c.pollTotal.Store(0)
	c.pollEmpty.Store(0)
	c.publishErrors.Store(0)
	c.pollErrors.Store(0)
	c.outOfRange.Store(0)
	c.seekTotal.Store(0)
	c.publishBytes.Store(0)
	c.deliveredRecords.Store(0)
	c.deliveredBytes.Store(0)
	c.publishDurations.reset()
	c.pollDurations.reset()
	c.evicted.Store(0)
	c.expired.Store(0)
	c.sweepsTotal.Store(0)
	c.lastSweepSec.Store(0)
	c.lastSweepDur.Store(0)
	c.topics.Store(0)
	c.retained.Store(0)
}

// Snapshot is a point-in-time view of metrics.
type Snapshot struct {
	Name string `json:"name"`

	// Operation counters
	PublishTotal  uint64 `json:"publish_total"`
	PollTotal     uint64 `json:"poll_total"`
	PollEmpty     uint64 `json:"poll_empty"`
	PublishErrors uint64 `json:"publish_errors"`
	PollErrors    uint64 `json:"poll_errors"`
	OutOfRange    uint64 `json:"out_of_range"`
	SeekTotal     uint64 `json:"seek_total"`

	// Payload metrics
	PublishBytes     uint64 `json:"publish_bytes"`
	DeliveredRecords uint64 `json:"delivered_records"`
	DeliveredBytes   uint64 `json:"delivered_bytes"`

	// Duration percentiles (in nanoseconds)
	PublishDurationP50 time.Duration `json:"publish_duration_p50"`
	PublishDurationP95 time.Duration `json:"publish_duration_p95"`
	PublishDurationP99 time.Duration `json:"publish_duration_p99"`
	PollDurationP50    time.Duration `json:"poll_duration_p50"`
	PollDurationP95    time.Duration `json:"poll_duration_p95"`
	PollDurationP99    time.Duration `json:"poll_duration_p99"`

	// Retention metrics
	Evicted           uint64        `json:"evicted"`
	Expired           uint64        `json:"expired"`
	SweepsTotal       uint64        `json:"sweeps_total"`
	LastSweepUnixSec  int64         `json:"last_sweep_unix_sec"`
	LastSweepDuration time.Duration `json:"last_sweep_duration"`

	// Registry state
	Topics   uint64 `json:"topics"`
	Retained uint64 `json:"retained"`
}

// durationHistogram is a simple histogram for tracking durations.
// Uses fixed decade buckets.
type durationHistogram struct {
	buckets [10]atomic.Uint64
}

func newDurationHistogram() *durationHistogram {
	return &durationHistogram{}
}

// observe records a duration in the appropriate bucket.
func (h *durationHistogram) observe(d time.Duration) {
	micros := d.Microseconds()
	var bucket int

	// Bucket boundaries (microseconds):
	// 0: < 1μs, 1: 1-10μs, 2: 10-100μs, 3: 100μs-1ms
	// 4: 1-10ms, 5: 10-100ms, 6: 100ms-1s, 7: 1-10s, 8: 10-100s, 9: >100s
	switch {
	case micros < 1:
		bucket = 0
	case micros < 10:
		bucket = 1
	case micros < 100:
		bucket = 2
	case micros < 1000:
		bucket = 3
	case micros < 10000:
		bucket = 4
	case micros < 100000:
		bucket = 5
	case micros < 1000000:
		bucket = 6
	case micros < 10000000:
		bucket = 7
	case micros < 100000000:
		bucket = 8
	default:
		bucket = 9
	}

	h.buckets[bucket].Add(1)
}

func (h *durationHistogram) reset() {
	for i := range h.buckets {
		h.buckets[i].Store(0)
	}
}

// bucketUpperBounds are the representative values reported per bucket.
var bucketUpperBounds = [10]time.Duration{
	500 * time.Nanosecond,
	5 * time.Microsecond,
	50 * time.Microsecond,
	500 * time.Microsecond,
	5 * time.Millisecond,
	50 * time.Millisecond,
	500 * time.Millisecond,
	5 * time.Second,
	50 * time.Second,
	100 * time.Second,
}

// percentile approximates a percentile from histogram buckets.
func (h *durationHistogram) percentile(p float64) time.Duration {
	var total uint64
	for i := range h.buckets {
		total += h.buckets[i].Load()
	}

	if total == 0 {
		return 0
	}

	target := uint64(math.Ceil(float64(total) * p))
	if target == 0 {
		target = 1
	}
	var count uint64
	for i := range h.buckets {
		count += h.buckets[i].Load()
		if count >= target {
			return bucketUpperBounds[i]
		}
	}

	return 0
}

// NoopCollector is a metrics collector that does nothing.
// Useful when metrics are disabled.
type NoopCollector struct{}

func (NoopCollector) RecordPublish(int, time.Duration) {}
func (NoopCollector) RecordPoll(int, int, time.Duration) {}
func (NoopCollector) RecordPollTimeout(time.Duration) {}
func (NoopCollector) RecordPublishError() {}
func (NoopCollector) RecordPollError() {}
func (NoopCollector) RecordOutOfRange() {}
func (NoopCollector) RecordSeek() {}
func (NoopCollector) RecordEviction(int) {}
func (NoopCollector) RecordSweep(int, time.Duration) {}
func (NoopCollector) UpdateRegistryState(uint64, uint64) {}
