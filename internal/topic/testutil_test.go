package topic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupLog creates a log with the given capacity.
func setupLog(t *testing.T, capacity int) *Log {
	t.Helper()

	l, err := New(t.Name(), capacity)
	require.NoError(t, err)

	t.Cleanup(l.Close)

	return l
}

// appendN appends n messages "msg-0", "msg-1", ... and returns their offsets.
func appendN(t *testing.T, l *Log, n int) []int64 {
	t.Helper()

	offsets := make([]int64, n)
	for i := 0; i < n; i++ {
		offset, _, err := l.Append([]byte(fmt.Sprintf("msg-%d", i)))
		require.NoError(t, err, "append %d", i)
		offsets[i] = offset
	}

	return offsets
}

// assertPayloads verifies records match expected payloads in order.
func assertPayloads(t *testing.T, records []Record, expected ...string) {
	t.Helper()

	if len(expected) == 0 {
		require.Empty(t, records)
		return
	}

	got := make([]string, len(records))
	for i, r := range records {
		got[i] = string(r.Payload)
	}
	require.Equal(t, expected, got)
}
