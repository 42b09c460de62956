// ABOUTME: Test doubles for the streaming pipeline
// ABOUTME: Controllable clock and a recording device channel
package hsp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeChannel records sends and refreshes in call order
type fakeChannel struct {
	mu      sync.Mutex
	events  []string
	batches [][]DevicePoint
	result  SendResult
	err     error
	release chan struct{} // when non-nil, Send blocks until closed
}

func (f *fakeChannel) Send(ctx context.Context, batch []DevicePoint) (SendResult, error) {
	f.mu.Lock()
	f.events = append(f.events, fmt.Sprintf("send:%d", len(batch)))
	f.batches = append(f.batches, batch)
	release := f.release
	res, err := f.result, f.err
	f.mu.Unlock()

	if release != nil {
		<-release
	}
	return res, err
}

func (f *fakeChannel) RefreshConnection() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, "refresh")
	return nil
}

func (f *fakeChannel) Batches() [][]DevicePoint {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]DevicePoint(nil), f.batches...)
}

func (f *fakeChannel) Events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.events...)
}

func (f *fakeChannel) Refreshes() int {
	n := 0
	for _, e := range f.Events() {
		if e == "refresh" {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// harness wires the pipeline parts around a fake clock and channel
type harness struct {
	clock      *fakeClock
	stream     *StreamClock
	store      *ConfigStore
	stats      *counters
	buffer     *PointBuffer
	guard      *Guard
	dispatcher *Dispatcher
	channel    *fakeChannel
}

func newHarness(t *testing.T, cfg PipelineConfig) *harness {
	t.Helper()

	store, err := NewConfigStore(cfg)
	require.NoError(t, err)

	h := &harness{
		clock:   newFakeClock(),
		store:   store,
		stats:   &counters{},
		channel: &fakeChannel{},
	}
	h.stream = NewStreamClock(time.Time{}, h.clock)
	h.buffer = newPointBuffer(store, h.stream, h.stats, discardLogger())
	h.guard = newGuard(h.channel, store, h.stats, discardLogger())
	h.dispatcher = newDispatcher(h.buffer, h.guard, store, h.stream, h.stats, discardLogger())
	return h
}

func testConfig() PipelineConfig {
	return PipelineConfig{
		PointOffset:          10 * time.Millisecond,
		SendInterval:         50 * time.Millisecond,
		MinimalPositionDelta: 2,
		Geometry:             Geometry{Kind: GeometryDirect},
	}
}
