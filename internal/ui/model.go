// ABOUTME: Bubbletea model for the bridge TUI
// ABOUTME: Shows the live position, session state and pipeline counters
package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hspbridge/hspbridge/pkg/hsp"
)

const gaugeWidth = 40

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	bigStyle   = lipgloss.NewStyle().Bold(true).Width(gaugeWidth).Align(lipgloss.Center)
)

// Model represents the TUI state
type Model struct {
	// Session
	connected bool
	device    string
	state     hsp.State
	oscAddr   string
	parameter string
	geometry  string

	// Live value
	position int

	// Counters
	stats   hsp.Stats
	pending int

	showDebug bool
	quitting  bool

	width  int
	height int
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case PositionMsg:
		m.position = clampPercent(msg.Display)
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	sections := []string{
		m.renderHeader(),
		m.renderPosition(),
		m.renderStats(),
	}
	if m.showDebug {
		sections = append(sections, m.renderDebug())
	}
	sections = append(sections, labelStyle.Render("d:Debug  q:Quit"))

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderHeader renders device and stream status
func (m Model) renderHeader() string {
	device := warnStyle.Render("not connected")
	if m.connected {
		device = okStyle.Render("connected")
		if m.device != "" {
			device += " " + labelStyle.Render("("+m.device+")")
		}
	}

	state := warnStyle.Render(m.state.String())
	if m.state == hsp.StateStreaming {
		state = okStyle.Render(m.state.String())
	}

	return strings.Join([]string{
		titleStyle.Render("HSP Bridge"),
		labelStyle.Render("Device: ") + device,
		labelStyle.Render("Stream: ") + state,
		labelStyle.Render("OSC:    ") + valueStyle.Render(m.oscAddr) + " " + labelStyle.Render(m.parameter),
		"",
	}, "\n")
}

// renderPosition renders the current display value as number and gauge
func (m Model) renderPosition() string {
	return strings.Join([]string{
		bigStyle.Render(fmt.Sprintf("%d", m.position)),
		"[" + renderBar(m.position, 100, gaugeWidth) + "]",
		"",
	}, "\n")
}

// renderStats renders pipeline counters
func (m Model) renderStats() string {
	s := m.stats
	lines := []string{
		fmt.Sprintf("%s %d  %s %d  %s %d",
			labelStyle.Render("Samples:"), s.Received,
			labelStyle.Render("Points:"), s.Accepted,
			labelStyle.Render("Gated:"), s.Gated),
		fmt.Sprintf("%s %d  %s %d  %s %d",
			labelStyle.Render("Batches:"), s.Batches,
			labelStyle.Render("Sent:"), s.PointsSent,
			labelStyle.Render("Pending:"), m.pending),
	}

	if problems := s.SendFailures + s.ConnectionResets + s.AckTimeouts; problems > 0 {
		lines = append(lines, warnStyle.Render(fmt.Sprintf("Failures: %d  Resets: %d  Ack timeouts: %d",
			s.SendFailures, s.ConnectionResets, s.AckTimeouts)))
	}

	return strings.Join(lines, "\n") + "\n"
}

// renderDebug renders anomaly counters
func (m Model) renderDebug() string {
	s := m.stats
	return labelStyle.Render(fmt.Sprintf(
		"Geometry: %s\nTrimmed: %d  Stale: %d  Schedule warnings: %d\nRejected: %d  Refreshes: %d\n",
		m.geometry, s.Trimmed, s.Stale, s.ScheduleWarnings, s.Rejected, s.Refreshes))
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.Device != "" {
		m.device = msg.Device
	}
	if msg.State != nil {
		m.state = *msg.State
	}
	if msg.OSCAddr != "" {
		m.oscAddr = msg.OSCAddr
		m.parameter = msg.Parameter
	}
	if msg.Geometry != "" {
		m.geometry = msg.Geometry
	}
	if msg.Stats != nil {
		m.stats = *msg.Stats
		m.pending = msg.Pending
	}
}

// StatusMsg updates TUI state. Zero fields are left unchanged.
type StatusMsg struct {
	Connected *bool
	Device    string
	State     *hsp.State
	OSCAddr   string
	Parameter string
	Geometry  string
	Stats     *hsp.Stats
	Pending   int
}

// PositionMsg carries the latest display value (0-100)
type PositionMsg struct {
	Display int
}

func renderBar(value, max, width int) string {
	filled := (value * width) / max
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func clampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
