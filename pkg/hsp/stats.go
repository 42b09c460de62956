// ABOUTME: Pipeline counters
// ABOUTME: Lock-free counters with a point-in-time snapshot
package hsp

import "sync/atomic"

// Stats is a snapshot of pipeline counters
type Stats struct {
	Received int64 // Samples passed to Append
	Accepted int64 // Samples that became points
	Gated    int64 // Samples discarded by the minimal-delta filter
	Rejected int64 // Non-finite samples

	Batches    int64 // Batches the device acknowledged
	PointsSent int64 // Points in acknowledged batches
	Trimmed    int64 // Points dropped because a batch exceeded the limit
	Stale      int64 // Batches whose first point was already due

	AckTimeouts      int64
	SendFailures     int64 // Unclassified send failures
	ConnectionResets int64 // GOAWAY-class failures
	Refreshes        int64
	ScheduleWarnings int64

	Position int // Last accepted display value
}

type counters struct {
	received atomic.Int64
	accepted atomic.Int64
	gated    atomic.Int64
	rejected atomic.Int64

	batches    atomic.Int64
	pointsSent atomic.Int64
	trimmed    atomic.Int64
	stale      atomic.Int64

	ackTimeouts      atomic.Int64
	sendFailures     atomic.Int64
	connectionResets atomic.Int64
	refreshes        atomic.Int64
	scheduleWarnings atomic.Int64

	position atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Received:         c.received.Load(),
		Accepted:         c.accepted.Load(),
		Gated:            c.gated.Load(),
		Rejected:         c.rejected.Load(),
		Batches:          c.batches.Load(),
		PointsSent:       c.pointsSent.Load(),
		Trimmed:          c.trimmed.Load(),
		Stale:            c.stale.Load(),
		AckTimeouts:      c.ackTimeouts.Load(),
		SendFailures:     c.sendFailures.Load(),
		ConnectionResets: c.connectionResets.Load(),
		Refreshes:        c.refreshes.Load(),
		ScheduleWarnings: c.scheduleWarnings.Load(),
		Position:         int(c.position.Load()),
	}
}
