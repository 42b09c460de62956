// ABOUTME: Prometheus collectors for pipeline counters
// ABOUTME: Counters are read from the pipeline snapshot on scrape
package monitor

import (
	"github.com/hspbridge/hspbridge/pkg/hsp"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hspbridge"

// Source exposes live pipeline state
type Source interface {
	Stats() hsp.Stats
	State() hsp.State
	Pending() int
}

// newRegistry registers one collector per pipeline counter
func newRegistry(source Source) *prometheus.Registry {
	reg := prometheus.NewRegistry()

	counter := func(name, help string, read func(hsp.Stats) int64) {
		reg.MustRegister(prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(read(source.Stats()))
		}))
	}

	counter("samples_received_total", "Signal samples received.", func(s hsp.Stats) int64 { return s.Received })
	counter("samples_accepted_total", "Samples that became device points.", func(s hsp.Stats) int64 { return s.Accepted })
	counter("samples_gated_total", "Samples discarded by the minimal change filter.", func(s hsp.Stats) int64 { return s.Gated })
	counter("samples_rejected_total", "Non-finite samples.", func(s hsp.Stats) int64 { return s.Rejected })
	counter("batches_sent_total", "Batches acknowledged by the device.", func(s hsp.Stats) int64 { return s.Batches })
	counter("points_sent_total", "Points in acknowledged batches.", func(s hsp.Stats) int64 { return s.PointsSent })
	counter("points_trimmed_total", "Points dropped because a batch exceeded the limit.", func(s hsp.Stats) int64 { return s.Trimmed })
	counter("batches_stale_total", "Batches whose first point was already due.", func(s hsp.Stats) int64 { return s.Stale })
	counter("ack_timeouts_total", "Sends that outlived the ack timeout.", func(s hsp.Stats) int64 { return s.AckTimeouts })
	counter("send_failures_total", "Unclassified send failures.", func(s hsp.Stats) int64 { return s.SendFailures })
	counter("connection_resets_total", "Sends dropped because the server reset the connection.", func(s hsp.Stats) int64 { return s.ConnectionResets })
	counter("connection_refreshes_total", "Transport connection refreshes.", func(s hsp.Stats) int64 { return s.Refreshes })
	counter("schedule_warnings_total", "Device timeline inconsistencies.", func(s hsp.Stats) int64 { return s.ScheduleWarnings })

	reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position",
			Help:      "Last accepted display value (0-100).",
		}, func() float64 { return float64(source.Stats().Position) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "points_pending",
			Help:      "Points buffered for the next dispatch.",
		}, func() float64 { return float64(source.Pending()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "streaming",
			Help:      "1 once the first batch was dispatched.",
		}, func() float64 {
			if source.State() == hsp.StateStreaming {
				return 1
			}
			return 0
		}),
	)

	return reg
}
