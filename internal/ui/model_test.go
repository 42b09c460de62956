// ABOUTME: Tests for TUI model and state management
// ABOUTME: Tests status updates, key handling and the position relay
package ui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hspbridge/hspbridge/pkg/hsp"
)

func TestNewModel(t *testing.T) {
	model := NewModel()

	if model.connected {
		t.Error("expected connected to be false initially")
	}

	if model.state != hsp.StateIdle {
		t.Errorf("expected idle state, got %v", model.state)
	}

	if model.showDebug {
		t.Error("expected showDebug to be false initially")
	}
}

func TestStatusMsgConnected(t *testing.T) {
	model := NewModel()

	connected := true
	model.applyStatus(StatusMsg{Connected: &connected, Device: "handy"})

	if !model.connected {
		t.Error("expected connected to be true after status update")
	}

	if model.device != "handy" {
		t.Errorf("expected device 'handy', got '%s'", model.device)
	}

	disconnected := false
	model.applyStatus(StatusMsg{Connected: &disconnected})

	if model.connected {
		t.Error("expected connected to be false after disconnect")
	}
}

func TestStatusMsgStats(t *testing.T) {
	model := NewModel()

	state := hsp.StateStreaming
	model.applyStatus(StatusMsg{
		State:   &state,
		Stats:   &hsp.Stats{Received: 1000, Accepted: 400, Batches: 20},
		Pending: 3,
	})

	if model.state != hsp.StateStreaming {
		t.Errorf("expected streaming state, got %v", model.state)
	}

	if model.stats.Received != 1000 || model.stats.Accepted != 400 || model.stats.Batches != 20 {
		t.Errorf("unexpected stats: %+v", model.stats)
	}

	if model.pending != 3 {
		t.Errorf("expected pending 3, got %d", model.pending)
	}
}

func TestPartialStatusKeepsFields(t *testing.T) {
	model := NewModel()

	model.applyStatus(StatusMsg{OSCAddr: ":9001", Parameter: "/a/*/b", Geometry: "relative"})
	model.applyStatus(StatusMsg{Stats: &hsp.Stats{Received: 1}})

	if model.oscAddr != ":9001" || model.parameter != "/a/*/b" {
		t.Errorf("osc fields lost: %q %q", model.oscAddr, model.parameter)
	}

	if model.geometry != "relative" {
		t.Errorf("expected geometry 'relative', got '%s'", model.geometry)
	}
}

func TestPositionMsg(t *testing.T) {
	var model tea.Model = NewModel()

	model, _ = model.Update(PositionMsg{Display: 35})
	if got := model.(Model).position; got != 35 {
		t.Errorf("expected position 35, got %d", got)
	}

	model, _ = model.Update(PositionMsg{Display: 140})
	if got := model.(Model).position; got != 100 {
		t.Errorf("expected position clamped to 100, got %d", got)
	}
}

func TestKeyHandling(t *testing.T) {
	var model tea.Model = NewModel()

	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("d")})
	if !model.(Model).showDebug {
		t.Error("expected debug view after 'd'")
	}

	model, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
	if model.View() != "" {
		t.Error("expected empty view after quit")
	}
}

func TestViewRendersPosition(t *testing.T) {
	var model tea.Model = NewModel()

	if model.View() != "Loading..." {
		t.Error("expected loading view before window size")
	}

	model, _ = model.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	model, _ = model.Update(PositionMsg{Display: 42})

	view := model.View()
	if !strings.Contains(view, "42") {
		t.Error("expected view to contain the position")
	}
	if !strings.Contains(view, "HSP Bridge") {
		t.Error("expected view to contain the title")
	}
}

func TestRenderBar(t *testing.T) {
	bar := renderBar(50, 100, 10)
	if bar != "█████░░░░░" {
		t.Errorf("unexpected bar %q", bar)
	}
}

func TestRelayCollapsesBursts(t *testing.T) {
	relay := NewRelay()
	for i := 0; i <= 50; i++ {
		relay.Observe(i)
	}

	got := make(chan tea.Msg, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Run(ctx, func(msg tea.Msg) { got <- msg })

	select {
	case msg := <-got:
		if pos := msg.(PositionMsg).Display; pos != 50 {
			t.Errorf("expected latest value 50, got %d", pos)
		}
	case <-time.After(time.Second):
		t.Fatal("relay did not forward")
	}
}
