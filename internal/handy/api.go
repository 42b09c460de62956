// ABOUTME: Handy API v3 endpoints used for HSP streaming
// ABOUTME: Request and response payloads plus the DeviceChannel adapter
package handy

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hspbridge/hspbridge/pkg/hsp"
)

// Mode is a device operating mode
type Mode int

// ModeHSP is the Handy Streaming Protocol mode
const ModeHSP Mode = 4

// DefaultStreamID is the stream id used for hsp/setup
const DefaultStreamID = 1

// Point is a single HSP point on the wire
type Point struct {
	T int64 `json:"t"`
	X int   `json:"x"`
}

// HSPState is the device's view of the HSP stream
type HSPState struct {
	PlayState       int     `json:"play_state"`
	Points          int     `json:"points"`
	MaxPoints       int     `json:"max_points"`
	CurrentPoint    int     `json:"current_point"`
	CurrentTime     int64   `json:"current_time"`
	Loop            bool    `json:"loop"`
	PlaybackRate    float64 `json:"playback_rate"`
	FirstPointTime  *int64  `json:"first_point_time"`
	LastPointTime   *int64  `json:"last_point_time"`
	StreamID        int     `json:"stream_id"`
	PauseOnStarving bool    `json:"pause_on_starving"`
}

// SliderStroke holds the slider limits as fractions of the full range
type SliderStroke struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type connectedResult struct {
	Connected bool `json:"connected"`
}

type modeRequest struct {
	Mode Mode `json:"mode"`
}

type setupRequest struct {
	StreamID int `json:"stream_id"`
}

type playRequest struct {
	StartTime       int64   `json:"start_time"`
	ServerTime      int64   `json:"server_time"`
	PlaybackRate    float64 `json:"playback_rate"`
	PauseOnStarving bool    `json:"pause_on_starving"`
	Loop            bool    `json:"loop"`
}

type addRequest struct {
	Points []Point `json:"points"`
	Flush  bool    `json:"flush"`
}

type strokeRequest struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Connected reports whether the device is online
func (c *Client) Connected(ctx context.Context) (bool, error) {
	res, err := do[connectedResult](ctx, c, http.MethodGet, "connected", nil)
	if err != nil {
		return false, err
	}
	return res.Connected, nil
}

// SetMode switches the device operating mode
func (c *Client) SetMode(ctx context.Context, mode Mode) error {
	_, err := do[json.RawMessage](ctx, c, http.MethodPut, "mode", modeRequest{Mode: mode})
	return err
}

// HSPSetup initializes a new HSP stream
func (c *Client) HSPSetup(ctx context.Context, streamID int) (*HSPState, error) {
	c.logger.Info("Initializing HSP stream", "stream_id", streamID)
	return do[HSPState](ctx, c, http.MethodPut, "hsp/setup", setupRequest{StreamID: streamID})
}

// HSPPlay starts playback of the HSP stream from startTime
func (c *Client) HSPPlay(ctx context.Context, startTime, serverTime int64, pauseOnStarving bool) (*HSPState, error) {
	body := playRequest{
		StartTime:       startTime,
		ServerTime:      serverTime,
		PlaybackRate:    1,
		PauseOnStarving: pauseOnStarving,
		Loop:            false,
	}
	c.logger.Info("Starting HSP stream", "start_time", startTime, "server_time", serverTime)
	return do[HSPState](ctx, c, http.MethodPut, "hsp/play", body)
}

// HSPAdd appends points to the HSP stream
func (c *Client) HSPAdd(ctx context.Context, points []Point, flush bool) (*HSPState, error) {
	return do[HSPState](ctx, c, http.MethodPut, "hsp/add", addRequest{Points: points, Flush: flush})
}

// SetSliderStroke sets the slider limits. Nil bounds are left unchanged;
// with both nil no request is made.
func (c *Client) SetSliderStroke(ctx context.Context, lower, upper *float64) error {
	if lower == nil && upper == nil {
		return nil
	}

	c.logger.Info("Setting slider limits", "min", derefFloat(lower), "max", derefFloat(upper))
	_, err := do[json.RawMessage](ctx, c, http.MethodPut, "slider/stroke", strokeRequest{Min: lower, Max: upper})
	return err
}

// SliderStroke reads the current slider limits
func (c *Client) SliderStroke(ctx context.Context) (*SliderStroke, error) {
	return do[SliderStroke](ctx, c, http.MethodGet, "slider/stroke", nil)
}

// Send implements hsp.DeviceChannel on top of hsp/add
func (c *Client) Send(ctx context.Context, batch []hsp.DevicePoint) (hsp.SendResult, error) {
	points := make([]Point, len(batch))
	for i, p := range batch {
		points[i] = Point{T: p.T, X: p.Position}
	}

	state, err := c.HSPAdd(ctx, points, false)
	if err != nil {
		return hsp.SendResult{}, err
	}

	return hsp.SendResult{
		CurrentTime:    state.CurrentTime,
		FirstPointTime: state.FirstPointTime,
		LastPointTime:  state.LastPointTime,
	}, nil
}

func derefFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

var _ hsp.DeviceChannel = (*Client)(nil)
