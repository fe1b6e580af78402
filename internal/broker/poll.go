// Package broker provides the blocking poll protocol.
// This file contains cursors, subscribe options and Poll.
package broker

import (
	"context"
	"errors"
	"time"

	"github.com/vnykmshr/topiclog/internal/logging"
)

// WaitForever makes Poll block until data arrives or the context is done.
const WaitForever time.Duration = -1

// Cursor is a subscriber's private read position in one topic.
// Offset is the last consumed offset; it starts one below the first
// retained record when reading from the beginning.
//
// A Cursor is a value owned by its subscriber: Poll returns the advanced
// cursor and the caller passes it to the next call.
type Cursor struct {
	TopicID      string `json:"topic"`
	SubscriberID string `json:"subscriber"`
	Offset       int64  `json:"offset"`
}

// Next returns the next offset the cursor has not consumed.
func (c Cursor) Next() int64 {
	return c.Offset + 1
}

// StartPosition selects where a newly registered cursor begins.
type StartPosition int

const (
	// StartBeginning positions the cursor before the oldest retained record.
	StartBeginning StartPosition = iota

	// StartLatest positions the cursor after the newest record, so only
	// records published after registration are delivered.
	StartLatest
)

// String returns the name of the start position.
func (p StartPosition) String() string {
	if p == StartLatest {
		return "latest"
	}
	return "beginning"
}

type subscribeConfig struct {
	start StartPosition
}

// SubscribeOption configures RegisterSubscriber.
type SubscribeOption func(*subscribeConfig)

// FromBeginning delivers the full retained history on the first poll (default).
func FromBeginning() SubscribeOption {
	return func(c *subscribeConfig) { c.start = StartBeginning }
}

// FromLatest delivers only records published after registration.
func FromLatest() SubscribeOption {
	return func(c *subscribeConfig) { c.start = StartLatest }
}

// WithStart selects the start position explicitly.
func WithStart(p StartPosition) SubscribeOption {
	return func(c *subscribeConfig) { c.start = p }
}

// Poll returns the records published after cur, blocking up to timeout for
// new data, together with the cursor to pass to the next call.
//
// When no data arrives before timeout elapses, Poll returns no records, the
// unchanged cursor and a nil error. A zero timeout never blocks; WaitForever
// blocks until data arrives or ctx is done. A cursor that fell behind the
// retention window fails with an *OutOfRangeError; recovering from it (for
// example with SeekToOldest) is the caller's decision.
func (r *Registry) Poll(ctx context.Context, cur Cursor, timeout time.Duration) ([]Record, Cursor, error) {
	return r.PollMax(ctx, cur, timeout, 0)
}

// PollMax is Poll returning at most maxRecords records (0 = unlimited).
func (r *Registry) PollMax(ctx context.Context, cur Cursor, timeout time.Duration, maxRecords int) ([]Record, Cursor, error) {
	start := time.Now()

	l, err := r.authorized(cur.TopicID, cur.SubscriberID, roleSubscriber)
	if err != nil {
		r.opts.MetricsCollector.RecordPollError()
		r.opts.Logger.Warn("poll rejected",
			logging.F("topic", cur.TopicID),
			logging.F("subscriber", cur.SubscriberID),
			logging.F("error", err),
		)
		return nil, cur, err
	}

	records, next, err := l.WaitLimit(ctx, cur.Offset, timeout, maxRecords)
	if err != nil {
		r.opts.MetricsCollector.RecordPollError()
		if errors.Is(err, ErrOffsetOutOfRange) {
			r.opts.MetricsCollector.RecordOutOfRange()
			r.opts.Logger.Warn("cursor behind retention window",
				logging.F("topic", cur.TopicID),
				logging.F("subscriber", cur.SubscriberID),
				logging.F("error", err),
			)
		}
		return nil, cur, r.closedErr(cur.TopicID, err)
	}

	if len(records) == 0 {
		r.opts.MetricsCollector.RecordPollTimeout(time.Since(start))
		return nil, cur, nil
	}

	// Authorization may have been revoked while blocked.
	if _, err := r.authorized(cur.TopicID, cur.SubscriberID, roleSubscriber); err != nil {
		r.opts.MetricsCollector.RecordPollError()
		return nil, cur, err
	}

	size := 0
	for _, rec := range records {
		size += len(rec.Payload)
	}
	r.opts.MetricsCollector.RecordPoll(len(records), size, time.Since(start))

	cur.Offset = next
	return records, cur, nil
}
