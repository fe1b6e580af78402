package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/topiclog/internal/broker"
	"github.com/vnykmshr/topiclog/internal/logging"
	"github.com/vnykmshr/topiclog/internal/metrics"
)

type testEnv struct {
	reg     *broker.Registry
	metrics *metrics.Collector
	server  *httptest.Server
}

// setupServer starts a registry behind an httptest server.
// Both are shut down when the test completes.
func setupServer(t *testing.T) *testEnv {
	t.Helper()

	logger := logging.NewSlogLogger(slogt.New(t))
	collector := metrics.NewCollector("test")

	regOpts := broker.DefaultOptions()
	regOpts.Logger = logger
	regOpts.MetricsCollector = collector

	reg, err := broker.New(regOpts)
	require.NoError(t, err)

	opts := DefaultOptions()
	opts.Logger = logger
	opts.Metrics = collector
	opts.PollTimeout = 2 * time.Second
	opts.MaxPollTimeout = 5 * time.Second

	server := httptest.NewServer(New(reg, opts).Handler())

	t.Cleanup(func() {
		_ = reg.Close()
		server.Close()
	})

	return &testEnv{reg: reg, metrics: collector, server: server}
}

// do sends a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil. It returns the status code.
func (e *testEnv) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequestWithContext(t.Context(), method, e.server.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}

	return resp.StatusCode
}

// setupTopic creates a topic with producer "p1" and subscriber "s1" through the API.
func (e *testEnv) setupTopic(t *testing.T, id string, capacity int) {
	t.Helper()

	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/topics", createTopicRequest{ID: id, Capacity: capacity}, nil))
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/topics/"+id+"/producers", registerRequest{ID: "p1"}, nil))
	require.Equal(t, http.StatusCreated, e.do(t, http.MethodPost, "/topics/"+id+"/subscribers", registerRequest{ID: "s1"}, nil))
}

func (e *testEnv) publish(t *testing.T, topicID string, payloads ...string) {
	t.Helper()

	for _, p := range payloads {
		status := e.do(t, http.MethodPost, "/topics/"+topicID+"/messages",
			publishRequest{ProducerID: "p1", Payload: []byte(p)}, nil)
		require.Equal(t, http.StatusCreated, status)
	}
}

func jsonDecode(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

func mustRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequestWithContext(t.Context(), method, path, nil)
}
