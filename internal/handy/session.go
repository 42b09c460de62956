// ABOUTME: HSP session bootstrap
// ABOUTME: Brings the device into streaming mode and captures the stream epoch
package handy

import (
	"context"
	"fmt"
	"time"
)

// SessionConfig holds the optional session parameters
type SessionConfig struct {
	SliderMin *float64
	SliderMax *float64
}

// Session describes a started HSP stream
type Session struct {
	Epoch  time.Time
	State  *HSPState
	Slider *SliderStroke
}

// StartSession checks the device, switches it to HSP, starts playback at
// t=0 and applies slider limits. The returned epoch is the local instant
// matching device time 0. Any error means the session is unusable.
func (c *Client) StartSession(ctx context.Context, cfg SessionConfig) (*Session, error) {
	connected, err := c.Connected(ctx)
	if err != nil {
		return nil, fmt.Errorf("connection check failed: %w", err)
	}
	if !connected {
		return nil, ErrNotConnected
	}
	c.logger.Info("Device connected")

	if err := c.SetMode(ctx, ModeHSP); err != nil {
		return nil, fmt.Errorf("failed to switch to HSP mode: %w", err)
	}

	if _, err := c.HSPSetup(ctx, DefaultStreamID); err != nil {
		return nil, fmt.Errorf("hsp setup failed: %w", err)
	}

	epoch := time.Now()
	state, err := c.HSPPlay(ctx, 0, 0, false)
	if err != nil {
		return nil, fmt.Errorf("hsp play failed: %w", err)
	}

	if err := c.SetSliderStroke(ctx, cfg.SliderMin, cfg.SliderMax); err != nil {
		return nil, fmt.Errorf("failed to set slider limits: %w", err)
	}

	slider, err := c.SliderStroke(ctx)
	if err != nil {
		// Read-back is informational only
		c.logger.Warn("Failed to read slider settings", "error", err)
	} else {
		c.logger.Info("Slider settings", "min", slider.Min, "max", slider.Max)
	}

	return &Session{
		Epoch:  epoch,
		State:  state,
		Slider: slider,
	}, nil
}
