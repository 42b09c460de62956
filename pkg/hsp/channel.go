// ABOUTME: Transport contract consumed by the streaming pipeline
// ABOUTME: Implemented by the device API client
package hsp

import "context"

// DeviceChannel sends batches to the device. Failures are never fatal to
// the pipeline; implementations wrap ErrConnectionReset for GOAWAY-class
// failures so the pipeline can tell them apart.
type DeviceChannel interface {
	// Send submits an ordered batch of points
	Send(ctx context.Context, batch []DevicePoint) (SendResult, error)

	// RefreshConnection replaces the underlying transport. Sends already in
	// flight may still complete on the old one.
	RefreshConnection() error
}

// SendResult carries the device's view of its playback timeline after a send
type SendResult struct {
	CurrentTime    int64  // Device playback time (ms since epoch)
	FirstPointTime *int64 // First point held by the device, if reported
	LastPointTime  *int64 // Last point held by the device, if reported
}
