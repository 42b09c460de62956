// ABOUTME: Tests for the dispatch loop
// ABOUTME: Covers overflow trimming, stale detection, state and cadence
package hsp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchEmptyBuffer(t *testing.T) {
	h := newHarness(t, testConfig())

	assert.False(t, h.dispatcher.dispatch(context.Background(), h.store.Load()))
	assert.Empty(t, h.channel.Events())
	assert.Equal(t, StateIdle, h.dispatcher.State())
}

func TestDispatchTrimsToLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MinimalPositionDelta = 0
	h := newHarness(t, cfg)

	var appended []DevicePoint
	for i := 0; i < 150; i++ {
		h.clock.Advance(time.Millisecond)
		p, ok := h.buffer.Append(float64(i%100) / 100)
		require.True(t, ok)
		appended = append(appended, p)
	}

	require.True(t, h.dispatcher.dispatch(context.Background(), h.store.Load()))
	h.guard.Wait()

	batches := h.channel.Batches()
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], DefaultBatchLimit)
	assert.Equal(t, appended[50:], batches[0])
	assert.Equal(t, int64(50), h.stats.snapshot().Trimmed)
}

func TestDispatchKeepsBatchAtLimit(t *testing.T) {
	cfg := testConfig()
	cfg.MinimalPositionDelta = 0
	h := newHarness(t, cfg)

	for i := 0; i < DefaultBatchLimit; i++ {
		h.buffer.Append(0.5)
	}

	require.True(t, h.dispatcher.dispatch(context.Background(), h.store.Load()))
	h.guard.Wait()

	assert.Len(t, h.channel.Batches()[0], DefaultBatchLimit)
	assert.Zero(t, h.stats.snapshot().Trimmed)
}

func TestDispatchSendsStalePoints(t *testing.T) {
	h := newHarness(t, testConfig())
	h.buffer.Append(0.4)

	// The point was due at t=10ms
	h.clock.Advance(100 * time.Millisecond)

	require.True(t, h.dispatcher.dispatch(context.Background(), h.store.Load()))
	h.guard.Wait()

	assert.Len(t, h.channel.Batches(), 1)
	assert.Equal(t, int64(1), h.snapshot().Stale)
}

func TestDispatchFreshPointsNotStale(t *testing.T) {
	h := newHarness(t, testConfig())
	h.buffer.Append(0.4)

	require.True(t, h.dispatcher.dispatch(context.Background(), h.store.Load()))
	h.guard.Wait()

	assert.Zero(t, h.snapshot().Stale)
}

func TestDispatchRecordsAttemptAndState(t *testing.T) {
	h := newHarness(t, testConfig())
	h.channel.err = assert.AnError
	h.buffer.Append(0.4)
	h.clock.Advance(7 * time.Millisecond)

	require.True(t, h.dispatcher.dispatch(context.Background(), h.store.Load()))
	h.guard.Wait()

	// Failed sends still count as dispatch attempts
	assert.Equal(t, h.clock.Now(), h.dispatcher.lastDispatch)
	assert.Equal(t, StateStreaming, h.dispatcher.State())
	assert.Equal(t, int64(1), h.snapshot().SendFailures)
}

func TestRunDispatchesOnCadence(t *testing.T) {
	cfg := testConfig()
	cfg.MinimalPositionDelta = 0
	cfg.SendInterval = 40 * time.Millisecond

	channel := &fakeChannel{}
	p, err := NewPipeline(cfg, channel, WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = p.Run(ctx)
	}()

	// Feed samples faster than the dispatch cadence for ~200ms
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		p.Append(0.5)
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	wg.Wait()

	assert.ErrorIs(t, runErr, context.Canceled)

	// 200ms at a 40ms cadence: one immediate dispatch plus ~5 more
	batches := len(channel.Batches())
	assert.GreaterOrEqual(t, batches, 2)
	assert.LessOrEqual(t, batches, 7)
}

func TestRunIdlesWithoutPoints(t *testing.T) {
	channel := &fakeChannel{}
	p, err := NewPipeline(testConfig(), channel, WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Run(ctx), context.DeadlineExceeded)
	assert.Empty(t, channel.Events())
	assert.Equal(t, StateIdle, p.State())
}

// snapshot returns the harness counters
func (h *harness) snapshot() Stats {
	return h.stats.snapshot()
}
