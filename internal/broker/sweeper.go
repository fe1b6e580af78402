// Package broker provides age-based retention for registry topics.
// This file contains the TTL sweep and its timer management.
package broker

import (
	"time"

	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/topic"
)

// Sweep expires records older than Options.MaxAge from every topic and
// returns the number of records removed. It is a no-op when MaxAge is 0.
// Offsets of the remaining records are unchanged; cursors that pointed into
// the expired range get an *OutOfRangeError on their next Poll.
func (r *Registry) Sweep() int {
	if r.opts.MaxAge <= 0 {
		return 0
	}

	start := time.Now()
	cutoff := start.Add(-r.opts.MaxAge)

	logs := r.snapshot()
	if logs == nil {
		return 0
	}

	expired := 0
	for _, l := range logs {
		if n := l.ExpireBefore(cutoff); n > 0 {
			expired += n
			r.opts.Logger.Debug("records expired",
				logging.F("topic", l.ID()),
				logging.F("count", n),
			)
		}
	}

	r.opts.MetricsCollector.RecordSweep(expired, time.Since(start))
	r.updateStateMetrics()

	return expired
}

// startSweepTimer starts the periodic TTL sweep.
func (r *Registry) startSweepTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepTimer = time.AfterFunc(r.opts.SweepInterval, func() {
		if n := r.Sweep(); n > 0 {
			r.opts.Logger.Info("background sweep completed",
				logging.F("expired", n),
			)
		}

		// Reschedule if not closed
		r.mu.Lock()
		if !r.closed {
			r.sweepTimer.Reset(r.opts.SweepInterval)
		}
		r.mu.Unlock()
	})
	r.sweepTimerActive = true
}

// snapshot returns the current topic logs, or nil once closed.
func (r *Registry) snapshot() []*topic.Log {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil
	}

	logs := make([]*topic.Log, 0, len(r.topics))
	for _, e := range r.topics {
		logs = append(logs, e.log)
	}
	return logs
}

// updateStateMetrics publishes the topic count and retained record total.
func (r *Registry) updateStateMetrics() {
	logs := r.snapshot()

	var retained uint64
	for _, l := range logs {
		retained += uint64(l.Len())
	}

	r.opts.MetricsCollector.UpdateRegistryState(uint64(len(logs)), retained)
}
