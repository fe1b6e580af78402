package topic

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed Log.
	ErrClosed = errors.New("topiclog: topic closed")

	// ErrOffsetOutOfRange indicates the requested cursor predates retained history.
	ErrOffsetOutOfRange = errors.New("topiclog: offset out of range")

	// ErrInvalidCapacity indicates a non-positive retention capacity.
	ErrInvalidCapacity = errors.New("topiclog: invalid capacity")
)

// OutOfRangeError describes a read whose cursor fell behind the retention window.
// It matches ErrOffsetOutOfRange with errors.Is.
type OutOfRangeError struct {
	Topic     string
	Requested int64
	First     int64
	Last      int64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("topiclog: offset %d out of range for topic %q (retained [%d, %d])",
		e.Requested, e.Topic, e.First, e.Last)
}

// Is reports whether target is ErrOffsetOutOfRange.
func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOffsetOutOfRange
}
