// Package topic provides the bounded, offset-indexed append log backing a single topic.
//
// A Log assigns every appended record the next offset, retains at most
// capacity records (evicting the oldest first), and lets any number of
// readers consume it from their own cursor. Readers that find no new data
// can block on the log until an append, a timeout, or context cancellation.
//
// Offsets are 0-based and never reused. An empty log has first offset 0 and
// last offset -1. A cursor is the last offset its owner has consumed, so a
// reader starting from the beginning holds cursor first-1.
//
// Basic usage:
//
//	l, err := topic.New("orders", 1000)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	offset, _, err := l.Append([]byte("hello"))
//
//	records, last, err := l.Wait(ctx, -1, 5*time.Second)
package topic

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Log is an append-only, bounded, offset-indexed record sequence.
// All methods are safe for concurrent use.
type Log struct {
	id       string
	capacity int

	mu sync.Mutex

	// records holds the retained window [first, last]
	records []Record
	first   int64
	last    int64

	// notify is closed on every append and replaced, waking all waiters
	notify chan struct{}

	appended uint64
	evicted  uint64
	waiters  int

	closed bool
}

// New creates an empty log that retains at most capacity records.
func New(id string, capacity int) (*Log, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}

	return &Log{
		id:       id,
		capacity: capacity,
		first:    0,
		last:     -1,
		notify:   make(chan struct{}),
	}, nil
}

// ID returns the topic identifier.
func (l *Log) ID() string {
	return l.id
}

// Capacity returns the maximum number of retained records.
func (l *Log) Capacity() int {
	return l.capacity
}

// Append stores payload under the next offset and wakes every blocked reader.
// Returns the assigned offset and how many records were evicted to stay within capacity.
func (l *Log) Append(payload []byte) (int64, int, error) {
	data := make([]byte, len(payload))
	copy(data, payload)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0, 0, ErrClosed
	}

	l.last++
	l.records = append(l.records, Record{
		Offset:     l.last,
		Payload:    data,
		EnqueuedAt: time.Now(),
	})
	l.appended++

	evicted := 0
	if over := len(l.records) - l.capacity; over > 0 {
		evicted = l.evictLocked(over)
	}

	l.broadcastLocked()

	return l.last, evicted, nil
}

// ReadFrom returns every retained record with offset greater than cursor,
// in ascending order, together with the log's current last offset.
func (l *Log) ReadFrom(cursor int64) ([]Record, int64, error) {
	return l.ReadFromLimit(cursor, 0)
}

// ReadFromLimit is ReadFrom returning at most maxRecords records (0 = unlimited).
// The returned offset is the offset of the last record returned, or the
// current last offset when nothing was truncated.
func (l *Log) ReadFromLimit(cursor int64, maxRecords int) ([]Record, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.readLocked(cursor, maxRecords)
}

// HasNewData reports whether records exist beyond cursor.
func (l *Log) HasNewData(cursor int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.last > cursor
}

// Wait returns the records after cursor, blocking until at least one exists.
//
// A positive timeout bounds the wait; when it elapses Wait returns no records,
// the unchanged cursor and a nil error. A zero timeout never blocks. A negative
// timeout waits until data arrives or ctx is done. Context cancellation returns
// ctx.Err(). Closing the log wakes all waiters with ErrClosed.
func (l *Log) Wait(ctx context.Context, cursor int64, timeout time.Duration) ([]Record, int64, error) {
	return l.WaitLimit(ctx, cursor, timeout, 0)
}

// WaitLimit is Wait returning at most maxRecords records (0 = unlimited).
func (l *Log) WaitLimit(ctx context.Context, cursor int64, timeout time.Duration, maxRecords int) ([]Record, int64, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		l.mu.Lock()
		if l.closed {
			l.mu.Unlock()
			return nil, cursor, ErrClosed
		}

		if l.last > cursor {
			records, next, err := l.readLocked(cursor, maxRecords)
			l.mu.Unlock()
			return records, next, err
		}

		if timeout == 0 {
			l.mu.Unlock()
			return nil, cursor, nil
		}

		// Grab the current generation before releasing the lock so an append
		// between Unlock and select still wakes us.
		notify := l.notify
		l.waiters++
		l.mu.Unlock()

		var err error
		timedOut := false
		select {
		case <-notify:
		case <-deadline:
			timedOut = true
		case <-ctx.Done():
			err = ctx.Err()
		}

		l.mu.Lock()
		l.waiters--
		l.mu.Unlock()

		if err != nil {
			return nil, cursor, err
		}
		if timedOut {
			return nil, cursor, nil
		}
	}
}

// Bounds returns the retention window. For an empty log last == first-1.
func (l *Log) Bounds() (first, last int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.first, l.last
}

// Len returns the number of retained records.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.records)
}

// OffsetAt returns the first retained offset enqueued at or after t.
// Returns last+1 when every retained record is older than t.
func (l *Log) OffsetAt(t time.Time) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range l.records {
		if !r.EnqueuedAt.Before(t) {
			return r.Offset
		}
	}

	return l.last + 1
}

// ExpireBefore evicts retained records enqueued before cutoff.
// Remaining offsets are unchanged. Returns the number of records evicted.
func (l *Log) ExpireBefore(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return 0
	}

	n := 0
	for n < len(l.records) && l.records[n].EnqueuedAt.Before(cutoff) {
		n++
	}
	if n == 0 {
		return 0
	}

	return l.evictLocked(n)
}

// Close marks the log closed and wakes all waiters.
// Subsequent appends and waits return ErrClosed.
func (l *Log) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.closed = true
	close(l.notify)
}

// Stats is a point-in-time view of a log.
type Stats struct {
	// ID is the topic identifier
	ID string

	// Capacity is the maximum number of retained records
	Capacity int

	// FirstOffset is the oldest retained offset
	FirstOffset int64

	// LastOffset is the newest offset, FirstOffset-1 when empty
	LastOffset int64

	// Retained is the number of records currently held
	Retained int

	// Appended is the total number of records ever appended
	Appended uint64

	// Evicted is the total number of records removed by retention
	Evicted uint64

	// Waiters is the number of readers currently blocked
	Waiters int
}

// Stats returns current log statistics.
func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	return Stats{
		ID:          l.id,
		Capacity:    l.capacity,
		FirstOffset: l.first,
		LastOffset:  l.last,
		Retained:    len(l.records),
		Appended:    l.appended,
		Evicted:     l.evicted,
		Waiters:     l.waiters,
	}
}

// readLocked assumes l.mu is held.
func (l *Log) readLocked(cursor int64, maxRecords int) ([]Record, int64, error) {
	if cursor < l.first-1 {
		return nil, cursor, &OutOfRangeError{
			Topic:     l.id,
			Requested: cursor,
			First:     l.first,
			Last:      l.last,
		}
	}

	if cursor >= l.last {
		return nil, l.last, nil
	}

	start := int(cursor - l.first + 1)
	end := len(l.records)
	if maxRecords > 0 && end-start > maxRecords {
		end = start + maxRecords
	}

	out := make([]Record, end-start)
	copy(out, l.records[start:end])

	return out, out[len(out)-1].Offset, nil
}

// evictLocked drops the n oldest records. Assumes l.mu is held.
func (l *Log) evictLocked(n int) int {
	clear(l.records[:n])
	l.records = l.records[n:]
	l.first += int64(n)
	l.evicted += uint64(n)

	// Slicing from the front shrinks cap, so the next growing append
	// reallocates and the evicted prefix becomes garbage.
	return n
}

// broadcastLocked wakes every waiter. Assumes l.mu is held.
func (l *Log) broadcastLocked() {
	close(l.notify)
	l.notify = make(chan struct{})
}
