// ABOUTME: Error values shared by the streaming pipeline
// ABOUTME: Configuration errors are fatal, transport errors never are
package hsp

import "errors"

var (
	// ErrInvalidConfig marks a pipeline configuration that cannot be used
	ErrInvalidConfig = errors.New("invalid pipeline configuration")

	// ErrInvalidGeometry marks device geometry parameters that cannot be used
	ErrInvalidGeometry = errors.New("invalid device geometry")

	// ErrConnectionReset is wrapped by DeviceChannel implementations when the
	// remote side tore down the connection (GOAWAY, reset). Batches that fail
	// with it are dropped without logging an error.
	ErrConnectionReset = errors.New("device connection reset")
)
