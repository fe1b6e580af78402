// Package broker provides seek operations for cursor navigation.
// This file contains methods for repositioning a subscriber's cursor.
package broker

import (
	"time"

	"github.com/vnykmshr/topiclog/internal/logging"
)

// SeekToOldest positions cur before the oldest retained record, so the next
// Poll returns the whole retention window. This is the usual recovery from
// an *OutOfRangeError.
func (r *Registry) SeekToOldest(cur Cursor) (Cursor, error) {
	return r.seek(cur, "oldest", func(first, _ int64) int64 {
		return first - 1
	})
}

// SeekToLatest positions cur after the newest record, skipping everything
// currently retained.
func (r *Registry) SeekToLatest(cur Cursor) (Cursor, error) {
	return r.seek(cur, "latest", func(_, last int64) int64 {
		return last
	})
}

// SeekToTimestamp positions cur so the next Poll starts at the first
// retained record enqueued at or after t. When every retained record is
// older than t the cursor lands on the newest record.
func (r *Registry) SeekToTimestamp(cur Cursor, t time.Time) (Cursor, error) {
	l, err := r.authorized(cur.TopicID, cur.SubscriberID, roleSubscriber)
	if err != nil {
		return cur, err
	}

	cur.Offset = l.OffsetAt(t) - 1
	r.recordSeek(cur, "timestamp")

	return cur, nil
}

func (r *Registry) seek(cur Cursor, target string, pick func(first, last int64) int64) (Cursor, error) {
	l, err := r.authorized(cur.TopicID, cur.SubscriberID, roleSubscriber)
	if err != nil {
		return cur, err
	}

	cur.Offset = pick(l.Bounds())
	r.recordSeek(cur, target)

	return cur, nil
}

func (r *Registry) recordSeek(cur Cursor, target string) {
	r.opts.MetricsCollector.RecordSeek()
	r.opts.Logger.Debug("cursor repositioned",
		logging.F("topic", cur.TopicID),
		logging.F("subscriber", cur.SubscriberID),
		logging.F("target", target),
		logging.F("cursor", cur.Offset),
	)
}
