// ABOUTME: Device API error types and transport error classification
// ABOUTME: Maps GOAWAY-class failures onto hsp.ErrConnectionReset
package handy

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/hspbridge/hspbridge/pkg/hsp"
	"golang.org/x/net/http2"
)

var (
	// ErrNotConnected is returned when the device is not online
	ErrNotConnected = errors.New("device not connected")

	// ErrEmptyResponse is returned when the API answered with neither a
	// result nor an error
	ErrEmptyResponse = errors.New("empty response")
)

// APIError is an error object reported by the device API
type APIError struct {
	Code      int    `json:"code"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	Connected bool   `json:"connected"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("device api error %d %s: %s (connected=%v)", e.Code, e.Name, e.Message, e.Connected)
}

// classify wraps transport failures that mean "the server dropped the
// connection" with hsp.ErrConnectionReset. Other errors pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var goAway http2.GoAwayError
	switch {
	case errors.As(err, &goAway):
		return fmt.Errorf("%w: %w", hsp.ErrConnectionReset, err)
	case errors.Is(err, syscall.ECONNRESET):
		return fmt.Errorf("%w: %w", hsp.ErrConnectionReset, err)
	case strings.Contains(err.Error(), "GOAWAY"):
		return fmt.Errorf("%w: %w", hsp.ErrConnectionReset, err)
	}

	return err
}
