package topic

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNew_InvalidCapacity(t *testing.T) {
	for _, capacity := range []int{0, -1} {
		_, err := New("t", capacity)
		require.ErrorIs(t, err, ErrInvalidCapacity)
	}
}

func TestLog_EmptyBounds(t *testing.T) {
	l := setupLog(t, 3)

	first, last := l.Bounds()
	assert.Equal(t, int64(0), first)
	assert.Equal(t, int64(-1), last)
	assert.False(t, l.HasNewData(-1))

	records, next, err := l.ReadFrom(-1)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(-1), next)
}

func TestLog_AppendAssignsSequentialOffsets(t *testing.T) {
	l := setupLog(t, 10)

	offsets := appendN(t, l, 5)
	assert.Equal(t, []int64{0, 1, 2, 3, 4}, offsets)

	records, next, err := l.ReadFrom(-1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
	assertPayloads(t, records, "msg-0", "msg-1", "msg-2", "msg-3", "msg-4")

	for i, r := range records {
		assert.Equal(t, int64(i), r.Offset)
		assert.False(t, r.EnqueuedAt.IsZero())
	}
}

func TestLog_AppendCopiesPayload(t *testing.T) {
	l := setupLog(t, 10)

	payload := []byte("abc")
	_, _, err := l.Append(payload)
	require.NoError(t, err)
	payload[0] = 'x'

	records, _, err := l.ReadFrom(-1)
	require.NoError(t, err)
	assertPayloads(t, records, "abc")
}

func TestLog_EvictionBoundary(t *testing.T) {
	l := setupLog(t, 3)

	evictedTotal := 0
	for i := 0; i < 5; i++ {
		_, evicted, err := l.Append([]byte(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
		evictedTotal += evicted
	}
	assert.Equal(t, 2, evictedTotal)

	first, last := l.Bounds()
	assert.Equal(t, int64(2), first)
	assert.Equal(t, int64(4), last)
	assert.Equal(t, 3, l.Len())

	records, next, err := l.ReadFrom(first - 1)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
	assertPayloads(t, records, "m2", "m3", "m4")
	assert.Equal(t, int64(2), records[0].Offset)

	_, _, err = l.ReadFrom(0)
	require.ErrorIs(t, err, ErrOffsetOutOfRange)

	var rangeErr *OutOfRangeError
	require.True(t, errors.As(err, &rangeErr))
	assert.Equal(t, int64(0), rangeErr.Requested)
	assert.Equal(t, int64(2), rangeErr.First)
	assert.Equal(t, int64(4), rangeErr.Last)
	assert.Equal(t, t.Name(), rangeErr.Topic)
}

func TestLog_ReadFromMiddle(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 5)

	records, next, err := l.ReadFrom(2)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
	assertPayloads(t, records, "msg-3", "msg-4")

	records, next, err = l.ReadFrom(4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), next)
	assertPayloads(t, records)
}

func TestLog_ReadFromLimit(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 5)

	records, next, err := l.ReadFromLimit(-1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)
	assertPayloads(t, records, "msg-0", "msg-1")

	records, next, err = l.ReadFromLimit(next, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), next)
	assertPayloads(t, records, "msg-2", "msg-3")
}

func TestLog_HasNewData(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 2)

	assert.True(t, l.HasNewData(-1))
	assert.True(t, l.HasNewData(0))
	assert.False(t, l.HasNewData(1))
}

func TestLog_WaitReturnsExistingDataImmediately(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 3)

	start := time.Now()
	records, next, err := l.Wait(context.Background(), -1, 5*time.Second)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int64(2), next)
	assert.Len(t, records, 3)
}

func TestLog_WaitBlocksUntilAppend(t *testing.T) {
	l := setupLog(t, 10)

	go func() {
		time.Sleep(200 * time.Millisecond)
		_, _, _ = l.Append([]byte("late"))
	}()

	start := time.Now()
	records, next, err := l.Wait(context.Background(), -1, 5*time.Second)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assertPayloads(t, records, "late")
	assert.Equal(t, int64(0), next)
	assert.GreaterOrEqual(t, elapsed, 150*time.Millisecond)
	assert.Less(t, elapsed, 2*time.Second)
}

func TestLog_WaitTimeoutReturnsEmpty(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 1)

	start := time.Now()
	records, next, err := l.Wait(context.Background(), 0, 100*time.Millisecond)
	elapsed := time.Since(start)

	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(0), next)
	assert.GreaterOrEqual(t, elapsed, 90*time.Millisecond)
}

func TestLog_WaitZeroTimeoutDoesNotBlock(t *testing.T) {
	l := setupLog(t, 10)

	start := time.Now()
	records, next, err := l.Wait(context.Background(), -1, 0)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(-1), next)
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLog_WaitContextCancellation(t *testing.T) {
	l := setupLog(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, next, err := l.Wait(ctx, -1, -1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(-1), next)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 0, l.Stats().Waiters)
}

func TestLog_WaitOutOfRange(t *testing.T) {
	l := setupLog(t, 2)
	appendN(t, l, 5)

	_, _, err := l.Wait(context.Background(), 0, time.Second)
	require.ErrorIs(t, err, ErrOffsetOutOfRange)
}

func TestLog_WaitBroadcastWakesAllWaiters(t *testing.T) {
	l := setupLog(t, 10)

	const waiters = 5
	var wg sync.WaitGroup
	results := make([][]Record, waiters)
	errs := make([]error, waiters)

	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = l.Wait(context.Background(), -1, 5*time.Second)
		}(i)
	}

	require.Eventually(t, func() bool {
		return l.Stats().Waiters == waiters
	}, 2*time.Second, 5*time.Millisecond)

	_, _, err := l.Append([]byte("wake"))
	require.NoError(t, err)

	wg.Wait()
	for i := 0; i < waiters; i++ {
		require.NoError(t, errs[i])
		assertPayloads(t, results[i], "wake")
	}
}

func TestLog_CloseWakesWaiters(t *testing.T) {
	l, err := New("closing", 10)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, _, err := l.Wait(context.Background(), -1, -1)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return l.Stats().Waiters == 1
	}, 2*time.Second, 5*time.Millisecond)

	l.Close()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not woken by Close")
	}

	_, _, err = l.Append([]byte("x"))
	require.ErrorIs(t, err, ErrClosed)

	// Close is idempotent.
	l.Close()
}

func TestLog_ExpireBefore(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 3)

	cutoff := time.Now()
	time.Sleep(5 * time.Millisecond)

	_, _, err := l.Append([]byte("fresh"))
	require.NoError(t, err)

	assert.Equal(t, 3, l.ExpireBefore(cutoff))

	first, last := l.Bounds()
	assert.Equal(t, int64(3), first)
	assert.Equal(t, int64(3), last)

	records, _, err := l.ReadFrom(2)
	require.NoError(t, err)
	assertPayloads(t, records, "fresh")
	assert.Equal(t, int64(3), records[0].Offset)

	_, _, err = l.ReadFrom(1)
	require.ErrorIs(t, err, ErrOffsetOutOfRange)

	assert.Equal(t, 0, l.ExpireBefore(cutoff))
	assert.Equal(t, uint64(3), l.Stats().Evicted)
}

func TestLog_ExpireAllKeepsOffsets(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 4)

	assert.Equal(t, 4, l.ExpireBefore(time.Now().Add(time.Second)))

	first, last := l.Bounds()
	assert.Equal(t, int64(4), first)
	assert.Equal(t, int64(3), last)
	assert.Equal(t, 0, l.Len())

	offset, _, err := l.Append([]byte("next"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), offset)
}

func TestLog_OffsetAt(t *testing.T) {
	l := setupLog(t, 10)
	appendN(t, l, 2)

	mark := time.Now()
	time.Sleep(5 * time.Millisecond)
	appendN(t, l, 2)

	assert.Equal(t, int64(0), l.OffsetAt(time.Time{}))
	assert.Equal(t, int64(2), l.OffsetAt(mark))
	assert.Equal(t, int64(4), l.OffsetAt(time.Now().Add(time.Hour)))
}

func TestLog_ConcurrentAppends(t *testing.T) {
	const (
		producers   = 8
		perProducer = 250
		capacity    = 100
	)
	l := setupLog(t, capacity)

	var wg sync.WaitGroup
	wg.Add(producers)
	for p := 0; p < producers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if _, _, err := l.Append([]byte(fmt.Sprintf("p%d-%d", p, i))); err != nil {
					t.Errorf("append: %v", err)
					return
				}
			}
		}(p)
	}
	wg.Wait()

	stats := l.Stats()
	total := int64(producers * perProducer)
	assert.Equal(t, uint64(total), stats.Appended)
	assert.Equal(t, uint64(total-capacity), stats.Evicted)
	assert.Equal(t, total-1, stats.LastOffset)
	assert.Equal(t, total-capacity, stats.FirstOffset)
	assert.Equal(t, capacity, stats.Retained)

	records, _, err := l.ReadFrom(stats.FirstOffset - 1)
	require.NoError(t, err)
	for i, r := range records {
		assert.Equal(t, stats.FirstOffset+int64(i), r.Offset)
	}
}

func TestLog_ConcurrentReadersSeeEveryRecord(t *testing.T) {
	const (
		total   = 500
		readers = 4
	)
	l := setupLog(t, total)

	var wg sync.WaitGroup
	wg.Add(readers)
	seen := make([][]int64, readers)

	for r := 0; r < readers; r++ {
		go func(r int) {
			defer wg.Done()
			cursor := int64(-1)
			for cursor < total-1 {
				records, next, err := l.Wait(context.Background(), cursor, 5*time.Second)
				if err != nil {
					t.Errorf("reader %d: %v", r, err)
					return
				}
				for _, rec := range records {
					seen[r] = append(seen[r], rec.Offset)
				}
				cursor = next
			}
		}(r)
	}

	for i := 0; i < total; i++ {
		_, _, err := l.Append([]byte(fmt.Sprintf("m%d", i)))
		require.NoError(t, err)
	}
	wg.Wait()

	for r := 0; r < readers; r++ {
		require.Len(t, seen[r], total, "reader %d", r)
		for i, off := range seen[r] {
			require.Equal(t, int64(i), off)
		}
	}
}
