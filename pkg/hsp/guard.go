// ABOUTME: Transmission guard around the device channel
// ABOUTME: Async send, bounded ack wait, error classification, connection refresh
package hsp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ScheduleWarning describes a device-reported timing inconsistency
type ScheduleWarning int

const (
	// WarnAllPointsSkipped: the device clock already passed the last point
	WarnAllPointsSkipped ScheduleWarning = iota
	// WarnFirstAfterLast: the device reports its first point at or after its last
	WarnFirstAfterLast
	// WarnNoLeeway: the first sent point was already due when the device answered
	WarnNoLeeway
)

func (w ScheduleWarning) String() string {
	switch w {
	case WarnAllPointsSkipped:
		return "all points skipped"
	case WarnFirstAfterLast:
		return "first point time is not before last point time"
	case WarnNoLeeway:
		return "first point already due"
	default:
		return fmt.Sprintf("ScheduleWarning(%d)", int(w))
	}
}

// CheckSchedule compares a sent batch against the device's reported timeline.
// The result is diagnostic only.
func CheckSchedule(batch []DevicePoint, res SendResult) []ScheduleWarning {
	var warnings []ScheduleWarning

	if res.FirstPointTime != nil && res.LastPointTime != nil {
		if res.CurrentTime >= *res.LastPointTime {
			warnings = append(warnings, WarnAllPointsSkipped)
		}
		if *res.FirstPointTime >= *res.LastPointTime {
			warnings = append(warnings, WarnFirstAfterLast)
		}
	}

	if len(batch) > 0 && batch[0].T-res.CurrentTime <= 0 {
		warnings = append(warnings, WarnNoLeeway)
	}

	return warnings
}

// Guard wraps outbound sends. Send never blocks the caller beyond the
// configured ack timeout.
type Guard struct {
	channel DeviceChannel
	config  *ConfigStore
	stats   *counters
	logger  *slog.Logger

	mu         sync.Mutex
	requests   int
	refreshDue bool
	inflight   sync.WaitGroup
}

// NewGuard creates a transmission guard
func NewGuard(channel DeviceChannel, config *ConfigStore, logger *slog.Logger) *Guard {
	return newGuard(channel, config, &counters{}, logger)
}

func newGuard(channel DeviceChannel, config *ConfigStore, stats *counters, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{
		channel: channel,
		config:  config,
		stats:   stats,
		logger:  logger,
	}
}

// Send transmits the batch in the background. With WaitForAck it waits at
// most AckTimeout for the device to answer.
func (g *Guard) Send(ctx context.Context, batch []DevicePoint) {
	cfg := g.config.Load()
	done := make(chan struct{})

	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		defer close(done)
		g.transmit(ctx, batch, cfg.RefreshThreshold)
	}()

	if !cfg.WaitForAck {
		return
	}

	start := time.Now()
	timer := time.NewTimer(cfg.AckTimeout)
	defer timer.Stop()

	select {
	case <-done:
		g.logger.Debug("Device answered", "took", time.Since(start))
	case <-timer.C:
		g.stats.ackTimeouts.Add(1)
		g.logger.Warn("Stopped waiting for device response", "timeout", cfg.AckTimeout, "points", len(batch))
	case <-ctx.Done():
	}
}

// Wait blocks until every in-flight send has finished
func (g *Guard) Wait() {
	g.inflight.Wait()
}

// Requests returns the number of attempts since the last refresh
func (g *Guard) Requests() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requests
}

// transmit performs one attempt. It is safe to run concurrently.
func (g *Guard) transmit(ctx context.Context, batch []DevicePoint, refreshThreshold int) {
	g.refreshIfDue()

	res, err := g.channel.Send(ctx, batch)
	switch {
	case err == nil:
		g.stats.batches.Add(1)
		g.stats.pointsSent.Add(int64(len(batch)))
		g.logger.Debug("Sent points",
			"points", len(batch),
			"leeway_ms", batch[0].T-res.CurrentTime,
			"current_time", res.CurrentTime)
		g.report(batch, res)
	case errors.Is(err, ErrConnectionReset):
		g.stats.connectionResets.Add(1)
		g.logger.Warn("Connection reset by device API, dropped points", "points", batch, "error", err)
	case errors.Is(err, context.Canceled):
		g.logger.Debug("Send cancelled", "points", len(batch))
	default:
		g.stats.sendFailures.Add(1)
		g.logger.Error("Failed to send points", "points", len(batch), "error", err)
	}

	g.countRequest(refreshThreshold)
}

// report logs schedule-health warnings without changing control flow
func (g *Guard) report(batch []DevicePoint, res SendResult) {
	for _, w := range CheckSchedule(batch, res) {
		g.stats.scheduleWarnings.Add(1)
		g.logger.Warn("Device schedule: "+w.String(),
			"first_sent", batch[0].T,
			"current_time", res.CurrentTime,
			"first_point_time", deref(res.FirstPointTime),
			"last_point_time", deref(res.LastPointTime))
	}
}

func (g *Guard) countRequest(threshold int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.requests++
	if g.requests >= threshold {
		g.requests = 0
		g.refreshDue = true
	}
}

// refreshIfDue replaces the connection before the first send that follows
// a threshold crossing
func (g *Guard) refreshIfDue() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.refreshDue {
		return
	}
	g.refreshDue = false

	g.stats.refreshes.Add(1)
	if err := g.channel.RefreshConnection(); err != nil {
		g.logger.Error("Failed to refresh device connection", "error", err)
		return
	}
	g.logger.Debug("Refreshed device connection")
}

func deref(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}
