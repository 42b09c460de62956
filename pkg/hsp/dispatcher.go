// ABOUTME: Fixed-cadence dispatch loop for buffered points
// ABOUTME: Drains the buffer, trims overflow and hands batches to the guard
package hsp

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the streaming state of a session
type State int32

const (
	// StateIdle: nothing has been dispatched yet
	StateIdle State = iota
	// StateStreaming: at least one batch has been dispatched
	StateStreaming
)

func (s State) String() string {
	if s == StateStreaming {
		return "streaming"
	}
	return "idle"
}

// Dispatcher drains the point buffer on a fixed cadence
type Dispatcher struct {
	buffer *PointBuffer
	guard  *Guard
	config *ConfigStore
	clock  *StreamClock
	stats  *counters
	logger *slog.Logger

	// lastDispatch is only touched by the Run goroutine
	lastDispatch time.Time
	state        atomic.Int32
}

// NewDispatcher creates a dispatch loop
func NewDispatcher(buffer *PointBuffer, guard *Guard, config *ConfigStore, clock *StreamClock, logger *slog.Logger) *Dispatcher {
	return newDispatcher(buffer, guard, config, clock, &counters{}, logger)
}

func newDispatcher(buffer *PointBuffer, guard *Guard, config *ConfigStore, clock *StreamClock, stats *counters, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		buffer: buffer,
		guard:  guard,
		config: config,
		clock:  clock,
		stats:  stats,
		logger: logger,
	}
}

// State returns the current streaming state
func (d *Dispatcher) State() State {
	return State(d.state.Load())
}

// Run dispatches until ctx is cancelled. Errors from individual cycles
// never stop the loop; the only return value is ctx.Err().
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Dispatch loop started", "interval", d.config.Load().SendInterval)

	for {
		if err := ctx.Err(); err != nil {
			d.logger.Info("Dispatch loop stopped")
			return err
		}

		cfg := d.config.Load()

		// Cadence is measured from the last attempt, not the last success
		if wait := cfg.SendInterval - d.clock.Now().Sub(d.lastDispatch); wait > 0 {
			sleep(ctx, wait)
			continue
		}

		if !d.dispatch(ctx, cfg) {
			sleep(ctx, cfg.IdleSleep)
		}
	}
}

// dispatch runs one cycle and reports whether a batch was submitted
func (d *Dispatcher) dispatch(ctx context.Context, cfg PipelineConfig) bool {
	batch := d.buffer.DrainAll()
	if len(batch) == 0 {
		return false
	}

	if over := len(batch) - cfg.BatchLimit; over > 0 {
		batch = batch[over:]
		d.stats.trimmed.Add(int64(over))
		d.logger.Warn("Batch over limit, dropped oldest points", "dropped", over, "limit", cfg.BatchLimit)
	}

	if elapsed := d.clock.Elapsed(); batch[0].T <= elapsed {
		d.stats.stale.Add(1)
		d.logger.Error("Points outdated before sending", "first_t", batch[0].T, "current_time", elapsed, "points", batch)
	}

	d.lastDispatch = d.clock.Now()
	if d.state.CompareAndSwap(int32(StateIdle), int32(StateStreaming)) {
		d.logger.Info("Streaming started", "first_t", batch[0].T)
	}

	d.guard.Send(ctx, batch)
	return true
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
