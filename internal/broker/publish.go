// Package broker provides message publish operations.
package broker

import (
	"fmt"
	"time"

	"github.com/vnykmshr/topiclog/internal/logging"
)

// Publish appends payload to the topic on behalf of producerID and returns the
// assigned offset. Blocked subscribers on the topic are woken.
func (r *Registry) Publish(topicID, producerID string, payload []byte) (int64, error) {
	start := time.Now()

	l, err := r.authorized(topicID, producerID, roleProducer)
	if err != nil {
		r.opts.MetricsCollector.RecordPublishError()
		r.opts.Logger.Warn("publish rejected",
			logging.F("topic", topicID),
			logging.F("producer", producerID),
			logging.F("error", err),
		)
		return 0, err
	}

	if limit := r.opts.MaxMessageSize; limit > 0 && int64(len(payload)) > limit {
		r.opts.MetricsCollector.RecordPublishError()
		return 0, fmt.Errorf("%w: %d bytes exceeds maximum %d bytes", ErrMessageTooLarge, len(payload), limit)
	}

	offset, evicted, err := l.Append(payload)
	if err != nil {
		r.opts.MetricsCollector.RecordPublishError()
		return 0, r.closedErr(topicID, err)
	}

	if evicted > 0 {
		r.opts.MetricsCollector.RecordEviction(evicted)
		r.opts.Logger.Debug("records evicted",
			logging.F("topic", topicID),
			logging.F("count", evicted),
			logging.F("offset", offset),
		)
	}

	r.opts.MetricsCollector.RecordPublish(len(payload), time.Since(start))

	return offset, nil
}
