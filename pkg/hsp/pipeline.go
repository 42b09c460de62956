// ABOUTME: Streaming pipeline assembly
// ABOUTME: Wires buffer, dispatcher and guard around a device channel
package hsp

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Option configures a Pipeline
type Option func(*options)

type options struct {
	logger *slog.Logger
	clock  Clock
	epoch  time.Time
}

// WithLogger sets the pipeline logger (default slog.Default())
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock replaces the wall clock, mainly for tests
func WithClock(clock Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithEpoch sets the instant device playback started (default: now)
func WithEpoch(epoch time.Time) Option {
	return func(o *options) {
		o.epoch = epoch
	}
}

// Pipeline streams raw samples to a device channel
type Pipeline struct {
	config     *ConfigStore
	clock      *StreamClock
	buffer     *PointBuffer
	guard      *Guard
	dispatcher *Dispatcher
	stats      *counters
	logger     *slog.Logger
}

// NewPipeline validates cfg and builds a pipeline. Configuration errors are
// returned here so a bad session never starts streaming.
func NewPipeline(cfg PipelineConfig, channel DeviceChannel, opts ...Option) (*Pipeline, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if channel == nil {
		return nil, fmt.Errorf("%w: device channel is required", ErrInvalidConfig)
	}

	store, err := NewConfigStore(cfg)
	if err != nil {
		return nil, err
	}

	stats := &counters{}
	clock := NewStreamClock(o.epoch, o.clock)
	buffer := newPointBuffer(store, clock, stats, o.logger)
	guard := newGuard(channel, store, stats, o.logger)

	return &Pipeline{
		config:     store,
		clock:      clock,
		buffer:     buffer,
		guard:      guard,
		dispatcher: newDispatcher(buffer, guard, store, clock, stats, o.logger),
		stats:      stats,
		logger:     o.logger,
	}, nil
}

// Append feeds one raw sample. It never blocks on I/O.
func (p *Pipeline) Append(value float64) bool {
	_, ok := p.buffer.Append(value)
	return ok
}

// SetObserver registers the display observer
func (p *Pipeline) SetObserver(fn PositionObserver) {
	p.buffer.SetObserver(fn)
}

// Run dispatches until ctx is cancelled, then waits for in-flight sends
func (p *Pipeline) Run(ctx context.Context) error {
	err := p.dispatcher.Run(ctx)
	p.guard.Wait()
	return err
}

// UpdateConfig atomically replaces the configuration. Points already
// buffered keep their timestamps and positions.
func (p *Pipeline) UpdateConfig(cfg PipelineConfig) error {
	if err := p.config.Swap(cfg); err != nil {
		return err
	}

	current := p.config.Load()
	p.logger.Info("Pipeline configuration updated",
		"point_offset", current.PointOffset,
		"send_interval", current.SendInterval,
		"minimal_delta", current.MinimalPositionDelta,
		"geometry", current.Geometry.Kind,
		"wait_for_ack", current.WaitForAck)
	return nil
}

// Config returns the current configuration
func (p *Pipeline) Config() PipelineConfig {
	return p.config.Load()
}

// Clock returns the stream clock
func (p *Pipeline) Clock() *StreamClock {
	return p.clock
}

// Pending returns the number of buffered points
func (p *Pipeline) Pending() int {
	return p.buffer.Len()
}

// State returns the streaming state
func (p *Pipeline) State() State {
	return p.dispatcher.State()
}

// Stats returns a snapshot of the pipeline counters
func (p *Pipeline) Stats() Stats {
	return p.stats.snapshot()
}
