// ABOUTME: Per-session pipeline configuration
// ABOUTME: Validated once and swapped atomically while the pipeline runs
package hsp

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	// DefaultAckTimeout bounds the optional wait for a device response
	DefaultAckTimeout = 330 * time.Millisecond

	// DefaultBatchLimit is the device's maximum number of points per request
	DefaultBatchLimit = 100

	// DefaultRefreshThreshold is the number of requests after which the
	// transport connection is replaced
	DefaultRefreshThreshold = 80

	// DefaultIdleSleep is the dispatcher's back-off when nothing is buffered
	DefaultIdleSleep = 5 * time.Millisecond
)

// PipelineConfig holds the immutable per-session streaming parameters
type PipelineConfig struct {
	// PointOffset is the scheduling lead time added to every point
	PointOffset time.Duration

	// SendInterval is the dispatch cadence
	SendInterval time.Duration

	// MinimalPositionDelta is the gating threshold in position units
	MinimalPositionDelta int

	// Geometry selects the sample-to-position mapping
	Geometry Geometry

	// WaitForAck makes the dispatcher wait (bounded by AckTimeout) for
	// each send to finish before continuing
	WaitForAck bool
	AckTimeout time.Duration

	// BatchLimit caps the number of points per request (newest kept)
	BatchLimit int

	// RefreshThreshold is the request count that triggers a connection refresh
	RefreshThreshold int

	// IdleSleep is how long the dispatcher sleeps when the buffer is empty
	IdleSleep time.Duration
}

// WithDefaults fills zero-valued optional fields
func (c PipelineConfig) WithDefaults() PipelineConfig {
	if c.AckTimeout == 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	if c.BatchLimit == 0 {
		c.BatchLimit = DefaultBatchLimit
	}
	if c.RefreshThreshold == 0 {
		c.RefreshThreshold = DefaultRefreshThreshold
	}
	if c.IdleSleep == 0 {
		c.IdleSleep = DefaultIdleSleep
	}
	return c
}

// Validate reports configuration errors. Call WithDefaults first.
func (c PipelineConfig) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}

	switch {
	case c.SendInterval <= 0:
		return fmt.Errorf("%w: send interval must be > 0, got %v", ErrInvalidConfig, c.SendInterval)
	case c.PointOffset < 0:
		return fmt.Errorf("%w: point offset must be >= 0, got %v", ErrInvalidConfig, c.PointOffset)
	case c.MinimalPositionDelta < 0:
		return fmt.Errorf("%w: minimal position delta must be >= 0, got %d", ErrInvalidConfig, c.MinimalPositionDelta)
	case c.AckTimeout <= 0:
		return fmt.Errorf("%w: ack timeout must be > 0, got %v", ErrInvalidConfig, c.AckTimeout)
	case c.BatchLimit <= 0:
		return fmt.Errorf("%w: batch limit must be > 0, got %d", ErrInvalidConfig, c.BatchLimit)
	case c.RefreshThreshold <= 0:
		return fmt.Errorf("%w: refresh threshold must be > 0, got %d", ErrInvalidConfig, c.RefreshThreshold)
	case c.IdleSleep <= 0:
		return fmt.Errorf("%w: idle sleep must be > 0, got %v", ErrInvalidConfig, c.IdleSleep)
	}

	return nil
}

// ConfigStore holds the current PipelineConfig. Swaps replace every field
// at once; readers always see a complete config.
type ConfigStore struct {
	current atomic.Pointer[PipelineConfig]
}

// NewConfigStore validates cfg and stores it
func NewConfigStore(cfg PipelineConfig) (*ConfigStore, error) {
	s := &ConfigStore{}
	if err := s.Swap(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Load returns the current config
func (s *ConfigStore) Load() PipelineConfig {
	return *s.current.Load()
}

// Swap validates cfg and replaces the current config
func (s *ConfigStore) Swap(cfg PipelineConfig) error {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.current.Store(&cfg)
	return nil
}
