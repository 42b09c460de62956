// ABOUTME: TUI initialization and position relay
// ABOUTME: Wraps the bubbletea program and feeds it without blocking callers
package ui

import (
	"context"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
)

// NewModel creates a new TUI model
func NewModel() Model {
	return Model{}
}

// Run creates the TUI program. The caller starts it with p.Run().
func Run() *tea.Program {
	return tea.NewProgram(NewModel(), tea.WithAltScreen())
}

// Relay decouples the ingestion path from the TUI. Observe never blocks;
// bursts collapse to the most recent value.
type Relay struct {
	latest atomic.Int64
	notify chan struct{}
}

// NewRelay creates a relay
func NewRelay() *Relay {
	return &Relay{notify: make(chan struct{}, 1)}
}

// Observe records a display value. It matches hsp.PositionObserver.
func (r *Relay) Observe(display int) {
	r.latest.Store(int64(display))
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Run forwards the latest value to send until ctx is cancelled
func (r *Relay) Run(ctx context.Context, send func(tea.Msg)) {
	for {
		select {
		case <-r.notify:
			send(PositionMsg{Display: int(r.latest.Load())})
		case <-ctx.Done():
			return
		}
	}
}
