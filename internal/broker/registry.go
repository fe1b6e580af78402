// Package broker provides an in-memory publish/subscribe log registry.
//
// A Registry maps topic ids to bounded append logs and enforces which
// producers may publish to and which subscribers may poll from each topic.
// Every subscriber owns a Cursor and threads it through successive Poll
// calls; the registry never stores or advances cursors itself.
//
// Basic usage:
//
//	r, err := broker.New(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
//	_ = r.CreateTopic("orders", 100)
//	_ = r.RegisterProducer("orders", "p1")
//	cur, _ := r.RegisterSubscriber("orders", "s1")
//
//	offset, err := r.Publish("orders", "p1", []byte("hello"))
//
//	records, cur, err := r.Poll(ctx, cur, 5*time.Second)
package broker

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/metrics"
	"github.com/vnykmshr/topiclog/internal/topic"
)

// Record is a message retained by a topic.
type Record = topic.Record

// role distinguishes the two authorization sets of a topic.
type role int

const (
	roleProducer role = iota
	roleSubscriber
)

// entry pairs a topic log with its authorization sets.
// The sets are guarded by Registry.mu, the log by its own lock.
type entry struct {
	log         *topic.Log
	name        string
	producers   map[string]struct{}
	subscribers map[string]struct{}
}

// Registry is a thread-safe set of named topics.
type Registry struct {
	opts *Options

	// mu guards topics, the authorization sets and closed.
	// Critical sections are short and never wait on a topic.
	mu     sync.RWMutex
	topics map[string]*entry

	// removed holds ids of deleted topics; ids are never reused.
	removed map[string]struct{}

	// Periodic TTL sweep
	sweepTimer       *time.Timer
	sweepTimerActive bool

	closed bool
}

// New creates an empty registry. A nil opts uses DefaultOptions.
func New(opts *Options) (*Registry, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoopLogger{}
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = metrics.NoopCollector{}
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	r := &Registry{
		opts:    opts,
		topics:  make(map[string]*entry),
		removed: make(map[string]struct{}),
	}

	if opts.MaxAge > 0 && opts.SweepInterval > 0 {
		r.startSweepTimer()
	}

	return r, nil
}

// TopicOption configures CreateTopic.
type TopicOption func(*entry)

// WithTopicName attaches a human-readable name to the topic.
func WithTopicName(name string) TopicOption {
	return func(e *entry) { e.name = name }
}

// CreateTopic registers a new topic retaining at most capacity records.
// A capacity of 0 uses Options.DefaultCapacity. Topic ids are unique for the
// registry's lifetime: an id that was removed cannot be created again.
func (r *Registry) CreateTopic(id string, capacity int, opts ...TopicOption) error {
	if id == "" {
		return ErrInvalidTopic
	}
	if capacity == 0 {
		capacity = r.opts.DefaultCapacity
	}

	l, err := topic.New(id, capacity)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	if _, ok := r.topics[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTopicExists, id)
	}
	if _, ok := r.removed[id]; ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q was removed", ErrTopicExists, id)
	}
	e := &entry{
		log:         l,
		producers:   make(map[string]struct{}),
		subscribers: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	r.topics[id] = e
	r.mu.Unlock()

	r.updateStateMetrics()

	r.opts.Logger.Info("topic created",
		logging.F("topic", id),
		logging.F("name", e.name),
		logging.F("capacity", capacity),
	)

	return nil
}

// RemoveTopic deletes a topic and its authorization sets.
// Subscribers blocked in Poll on the topic return ErrTopicNotFound.
// The id stays reserved and CreateTopic rejects it with ErrTopicExists.
func (r *Registry) RemoveTopic(id string) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrRegistryClosed
	}
	e, ok := r.topics[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrTopicNotFound, id)
	}
	delete(r.topics, id)
	r.removed[id] = struct{}{}
	r.mu.Unlock()

	e.log.Close()
	r.updateStateMetrics()

	r.opts.Logger.Info("topic removed", logging.F("topic", id))

	return nil
}

// RegisterProducer authorizes producerID to publish to the topic. Idempotent.
func (r *Registry) RegisterProducer(topicID, producerID string) error {
	_, err := r.register(topicID, producerID, roleProducer)
	return err
}

// UnregisterProducer revokes producerID's authorization. Idempotent.
func (r *Registry) UnregisterProducer(topicID, producerID string) error {
	return r.unregister(topicID, producerID, roleProducer)
}

// RegisterSubscriber authorizes subscriberID to poll the topic and returns
// a fresh cursor positioned according to opts (FromBeginning by default).
// Registration is idempotent; every call returns a newly positioned cursor.
func (r *Registry) RegisterSubscriber(topicID, subscriberID string, opts ...SubscribeOption) (Cursor, error) {
	cfg := subscribeConfig{start: StartBeginning}
	for _, opt := range opts {
		opt(&cfg)
	}

	l, err := r.register(topicID, subscriberID, roleSubscriber)
	if err != nil {
		return Cursor{}, err
	}

	first, last := l.Bounds()
	cur := Cursor{TopicID: topicID, SubscriberID: subscriberID, Offset: first - 1}
	if cfg.start == StartLatest {
		cur.Offset = last
	}

	r.opts.Logger.Debug("subscriber registered",
		logging.F("topic", topicID),
		logging.F("subscriber", subscriberID),
		logging.F("cursor", cur.Offset),
	)

	return cur, nil
}

// UnregisterSubscriber revokes subscriberID's authorization. Its cursor can no
// longer be used with Poll, and a Poll already blocked for it fails with
// ErrSubscriberNotAuthorized when it wakes instead of delivering. Idempotent.
func (r *Registry) UnregisterSubscriber(topicID, subscriberID string) error {
	return r.unregister(topicID, subscriberID, roleSubscriber)
}

// Topics returns the registered topic ids in sorted order.
func (r *Registry) Topics() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.topics))
	for id := range r.topics {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.Sort(ids)
	return ids
}

// TopicStats contains statistics about a single topic.
type TopicStats struct {
	topic.Stats

	// Name is the optional display name given at creation
	Name string

	// Producers is the number of authorized producers
	Producers int

	// Subscribers is the number of authorized subscribers
	Subscribers int
}

// TopicStats returns current statistics for a topic.
func (r *Registry) TopicStats(id string) (TopicStats, error) {
	r.mu.RLock()
	if r.closed {
		r.mu.RUnlock()
		return TopicStats{}, ErrRegistryClosed
	}
	e, ok := r.topics[id]
	if !ok {
		r.mu.RUnlock()
		return TopicStats{}, fmt.Errorf("%w: %q", ErrTopicNotFound, id)
	}
	name, producers, subscribers := e.name, len(e.producers), len(e.subscribers)
	r.mu.RUnlock()

	return TopicStats{
		Stats:       e.log.Stats(),
		Name:        name,
		Producers:   producers,
		Subscribers: subscribers,
	}, nil
}

// Close stops the sweeper and closes every topic. Blocked polls return
// ErrRegistryClosed; all later calls fail with ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}

	if r.sweepTimerActive {
		r.sweepTimer.Stop()
		r.sweepTimerActive = false
	}

	r.closed = true
	topics := r.topics
	r.topics = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range topics {
		e.log.Close()
	}

	r.opts.Logger.Info("registry closed", logging.F("topics", len(topics)))

	return nil
}

// register adds actorID to the topic's set for role and returns its log.
func (r *Registry) register(topicID, actorID string, rl role) (*topic.Log, error) {
	if actorID == "" {
		return nil, ErrInvalidActor
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.entryLocked(topicID)
	if err != nil {
		return nil, err
	}

	e.set(rl)[actorID] = struct{}{}

	return e.log, nil
}

func (r *Registry) unregister(topicID, actorID string, rl role) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.entryLocked(topicID)
	if err != nil {
		return err
	}

	delete(e.set(rl), actorID)

	return nil
}

// authorized returns the topic log if actorID holds role on it.
// All existence and authorization checks happen here, before any topic lock.
func (r *Registry) authorized(topicID, actorID string, rl role) (*topic.Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, err := r.entryLocked(topicID)
	if err != nil {
		return nil, err
	}

	if _, ok := e.set(rl)[actorID]; !ok {
		if rl == roleProducer {
			return nil, fmt.Errorf("%w: producer %q on topic %q", ErrProducerNotAuthorized, actorID, topicID)
		}
		return nil, fmt.Errorf("%w: subscriber %q on topic %q", ErrSubscriberNotAuthorized, actorID, topicID)
	}

	return e.log, nil
}

// entryLocked assumes r.mu is held (read or write).
func (r *Registry) entryLocked(topicID string) (*entry, error) {
	if r.closed {
		return nil, ErrRegistryClosed
	}

	e, ok := r.topics[topicID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrTopicNotFound, topicID)
	}

	return e, nil
}

// closedErr translates a topic.ErrClosed into the registry-level cause.
func (r *Registry) closedErr(topicID string, err error) error {
	if !errors.Is(err, topic.ErrClosed) {
		return err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrRegistryClosed
	}
	return fmt.Errorf("%w: %q", ErrTopicNotFound, topicID)
}

func (e *entry) set(rl role) map[string]struct{} {
	if rl == roleProducer {
		return e.producers
	}
	return e.subscribers
}
