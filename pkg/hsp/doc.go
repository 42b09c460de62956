// ABOUTME: Signal-to-device streaming pipeline for HSP devices
// ABOUTME: Maps scalar samples to timestamped points and streams them in batches
// Package hsp streams a real-time scalar signal to a remote motion device
// that replays timestamped position points on its own timeline.
//
// The pipeline is made of:
//   - Geometry: maps a raw sample (0.0-1.0) to a device position (0-100)
//   - PointBuffer: gated, mutex-guarded buffer of pending points
//   - Dispatcher: fixed-cadence loop that drains the buffer into batches
//   - Guard: fire-and-forget transmission with optional bounded wait,
//     error classification and periodic connection refresh
//   - DeviceChannel: the transport the Guard sends through
//
// Example:
//
//	p, err := hsp.NewPipeline(hsp.PipelineConfig{
//	    PointOffset:          600 * time.Millisecond,
//	    SendInterval:         200 * time.Millisecond,
//	    MinimalPositionDelta: 2,
//	    Geometry:             hsp.Geometry{Kind: hsp.GeometryDirect},
//	}, channel, hsp.WithEpoch(epoch))
//	go p.Run(ctx)
//	p.Append(0.42)
package hsp
