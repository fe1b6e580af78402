package topic

import "time"

// Record is a single message retained by a Log.
// Records are immutable once appended.
type Record struct {
	// Offset is the position of the record within the topic's lifetime
	Offset int64

	// Payload is the message data
	Payload []byte

	// EnqueuedAt is when the record was appended (carries a monotonic reading)
	EnqueuedAt time.Time
}
