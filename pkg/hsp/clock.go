// ABOUTME: Stream clock relative to the device playback epoch
// ABOUTME: All point timestamps are milliseconds since the epoch
package hsp

import "time"

// Clock abstracts time.Now so tests can control apparent time
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time {
	return time.Now()
}

// StreamClock measures elapsed time since the stream epoch
type StreamClock struct {
	clock Clock
	epoch time.Time
}

// NewStreamClock creates a stream clock. A zero epoch means "now".
func NewStreamClock(epoch time.Time, clock Clock) *StreamClock {
	if clock == nil {
		clock = wallClock{}
	}
	if epoch.IsZero() {
		epoch = clock.Now()
	}

	return &StreamClock{
		clock: clock,
		epoch: epoch,
	}
}

// Epoch returns the instant the device playback session started
func (c *StreamClock) Epoch() time.Time {
	return c.epoch
}

// Now returns the current time from the underlying clock
func (c *StreamClock) Now() time.Time {
	return c.clock.Now()
}

// Elapsed returns whole milliseconds since the epoch
func (c *StreamClock) Elapsed() int64 {
	return c.clock.Now().Sub(c.epoch).Milliseconds()
}
