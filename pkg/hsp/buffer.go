// ABOUTME: Gated buffer of pending device points
// ABOUTME: Append and drain are serialized by a single mutex
package hsp

import (
	"log/slog"
	"math"
	"sync"
)

// PositionObserver is told the display value of every accepted point.
// It runs synchronously on the ingestion path and must not block.
type PositionObserver func(display int)

// initialPosition is the top of the stroke
const initialPosition = 100

// PointBuffer collects points between dispatch cycles
type PointBuffer struct {
	mu           sync.Mutex
	notifyMu     sync.Mutex // keeps observer calls in acceptance order
	points       []DevicePoint
	lastPosition int
	observer     PositionObserver

	config *ConfigStore
	clock  *StreamClock
	stats  *counters
	logger *slog.Logger
}

// NewPointBuffer creates an empty buffer
func NewPointBuffer(config *ConfigStore, clock *StreamClock, logger *slog.Logger) *PointBuffer {
	return newPointBuffer(config, clock, &counters{}, logger)
}

func newPointBuffer(config *ConfigStore, clock *StreamClock, stats *counters, logger *slog.Logger) *PointBuffer {
	if logger == nil {
		logger = slog.Default()
	}
	stats.position.Store(int64(DisplayValue(initialPosition)))

	return &PointBuffer{
		points:       make([]DevicePoint, 0, 20),
		lastPosition: initialPosition,
		config:       config,
		clock:        clock,
		stats:        stats,
		logger:       logger,
	}
}

// SetObserver registers the display observer (nil clears it)
func (b *PointBuffer) SetObserver(fn PositionObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = fn
}

// Append maps a raw sample and buffers it unless it moves the device less
// than the configured minimal delta. It reports whether a point was added.
func (b *PointBuffer) Append(value float64) (DevicePoint, bool) {
	b.stats.received.Add(1)

	if math.IsNaN(value) || math.IsInf(value, 0) {
		b.stats.rejected.Add(1)
		b.logger.Debug("Discarding non-finite sample", "value", value)
		return DevicePoint{}, false
	}

	b.mu.Lock()
	cfg := b.config.Load()
	position := cfg.Geometry.Position(value)
	delta := position - b.lastPosition
	if delta < 0 {
		delta = -delta
	}
	if delta < cfg.MinimalPositionDelta {
		b.mu.Unlock()
		b.stats.gated.Add(1)
		return DevicePoint{}, false
	}

	b.lastPosition = position
	point := DevicePoint{
		T:        b.clock.Elapsed() + cfg.PointOffset.Milliseconds(),
		Position: position,
	}
	b.points = append(b.points, point)
	display := DisplayValue(position)
	b.stats.accepted.Add(1)
	b.stats.position.Store(int64(display))
	observer := b.observer
	if observer == nil {
		b.mu.Unlock()
		return point, true
	}

	// Hand over to notifyMu before releasing mu so a slow observer never
	// holds up DrainAll but still sees values in the order they were accepted.
	b.notifyMu.Lock()
	b.mu.Unlock()
	observer(display)
	b.notifyMu.Unlock()

	return point, true
}

// DrainAll empties the buffer and returns its points in insertion order
func (b *PointBuffer) DrainAll() []DevicePoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.points) == 0 {
		return nil
	}

	drained := b.points
	b.points = make([]DevicePoint, 0, cap(drained))
	return drained
}

// Len returns the number of buffered points
func (b *PointBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.points)
}
