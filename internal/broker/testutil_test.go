package broker

import (
	"fmt"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/metrics"
)

// setupRegistry creates a registry that logs to the test output.
// A nil opts uses DefaultOptions. The registry is closed when the test completes.
func setupRegistry(t *testing.T, opts *Options) *Registry {
	t.Helper()

	if opts == nil {
		opts = DefaultOptions()
	}
	opts.Logger = logging.NewSlogLogger(slogt.New(t))

	r, err := New(opts)
	require.NoError(t, err)

	t.Cleanup(func() { _ = r.Close() })

	return r
}

// setupMetrics attaches a fresh collector to opts and returns it.
func setupMetrics(opts *Options) *metrics.Collector {
	c := metrics.NewCollector("test")
	opts.MetricsCollector = c
	return c
}

// setupTopic creates a topic with one producer "p1" and one subscriber "s1"
// and returns the subscriber's cursor.
func setupTopic(t *testing.T, r *Registry, id string, capacity int) Cursor {
	t.Helper()

	require.NoError(t, r.CreateTopic(id, capacity))
	require.NoError(t, r.RegisterProducer(id, "p1"))

	cur, err := r.RegisterSubscriber(id, "s1")
	require.NoError(t, err)

	return cur
}

// publishN publishes "msg-0", "msg-1", ... as producer "p1".
func publishN(t *testing.T, r *Registry, topicID string, n int) []int64 {
	t.Helper()

	offsets := make([]int64, n)
	for i := 0; i < n; i++ {
		offset, err := r.Publish(topicID, "p1", []byte(fmt.Sprintf("msg-%d", i)))
		require.NoError(t, err, "publish %d", i)
		offsets[i] = offset
	}

	return offsets
}

// payloads returns the record payloads as strings.
func payloads(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = string(rec.Payload)
	}
	return out
}
