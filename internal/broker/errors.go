package broker

import (
	"errors"

	"github.com/vnykmshr/topiclog/internal/topic"
)

// Errors returned by Registry operations.
var (
	// ErrTopicExists indicates a topic id is already registered.
	ErrTopicExists = errors.New("topiclog: topic already exists")

	// ErrTopicNotFound indicates the topic does not exist (or was removed).
	ErrTopicNotFound = errors.New("topiclog: topic not found")

	// ErrProducerNotAuthorized indicates the producer is not registered on the topic.
	ErrProducerNotAuthorized = errors.New("topiclog: producer not authorized")

	// ErrSubscriberNotAuthorized indicates the subscriber is not registered on the topic.
	ErrSubscriberNotAuthorized = errors.New("topiclog: subscriber not authorized")

	// ErrOffsetOutOfRange indicates a cursor fell behind the retention window.
	// The concrete error is an *OutOfRangeError carrying the valid range.
	ErrOffsetOutOfRange = topic.ErrOffsetOutOfRange

	// ErrInvalidCapacity indicates a non-positive topic capacity.
	ErrInvalidCapacity = topic.ErrInvalidCapacity

	// ErrInvalidTopic indicates an empty topic id.
	ErrInvalidTopic = errors.New("topiclog: invalid topic id")

	// ErrInvalidActor indicates an empty producer or subscriber id.
	ErrInvalidActor = errors.New("topiclog: invalid producer or subscriber id")

	// ErrMessageTooLarge indicates a payload above Options.MaxMessageSize.
	ErrMessageTooLarge = errors.New("topiclog: message too large")

	// ErrRegistryClosed indicates the registry has been closed.
	ErrRegistryClosed = errors.New("topiclog: registry closed")
)

// OutOfRangeError describes a cursor below the retained window.
type OutOfRangeError = topic.OutOfRangeError
