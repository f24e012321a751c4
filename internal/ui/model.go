// ABOUTME: Bubbletea model for player TUI
// ABOUTME: Defines application state and update logic
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const volumeStep = 5

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Width(10)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Stream
	url      string
	format   string
	encoding string
	state    string

	// Pipeline
	units         int64
	bytesReceived int64
	enqueued      int64
	played        int64
	underruns     int64
	queueLength   int
	queueCapacity int
	buffered      time.Duration
	startupDelay  time.Duration
	paused        bool

	// Playback
	volume int
	muted  bool

	err  error
	done bool

	showDebug bool

	width  int
	height int

	volumeCtrl *VolumeControl
}

// StatusMsg is a snapshot of player state. Zero-valued fields leave the
// corresponding model state unchanged.
type StatusMsg struct {
	URL           string
	Format        string
	Encoding      string
	State         string
	Units         int64
	BytesReceived int64
	Enqueued      int64
	Played        int64
	Underruns     int64
	QueueLength   int
	QueueCapacity int
	Buffered      time.Duration
	StartupDelay  time.Duration
	Paused        *bool
	Volume        *int
	Muted         *bool
}

// DoneMsg reports that playback has ended
type DoneMsg struct {
	Err error
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
	case StatusMsg:
		m.applyStatus(msg)
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		m.state = "finished"
		return m, tea.Quit
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("pcmstream player"))
	b.WriteString("\n")
	b.WriteString(m.renderStream())
	b.WriteString("\n")
	b.WriteString(m.renderPipeline())
	b.WriteString("\n")
	b.WriteString(m.renderControls())

	if m.showDebug {
		b.WriteString("\n")
		b.WriteString(m.renderDebug())
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(warnStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: volume  m: mute  d: debug  q: quit"))
	b.WriteString("\n")

	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value) + "\n"
}

// renderStream renders the source and format
func (m Model) renderStream() string {
	if m.url == "" {
		return row("Stream", "none")
	}

	s := row("Stream", truncate(m.url, 50))
	if m.format != "" {
		s += row("Format", fmt.Sprintf("%s %s", m.format, m.encoding))
	}
	state := m.state
	if m.paused && state != "finished" {
		state += " (warming up)"
	}
	s += row("State", state)
	return s
}

// renderPipeline renders buffering and queue status
func (m Model) renderPipeline() string {
	s := row("Received", fmt.Sprintf("%s in %d units", formatBytes(m.bytesReceived), m.units))
	s += row("Buffered", m.buffered.Round(time.Millisecond).String())

	queue := fmt.Sprintf("[%s] %d/%d", renderBar(m.queueLength, m.queueCapacity, 10), m.queueLength, m.queueCapacity)
	s += row("Queue", queue)

	underruns := fmt.Sprintf("%d", m.underruns)
	if m.underruns > 0 {
		s += labelStyle.Render("Underruns") + warnStyle.Render(underruns) + "\n"
	} else {
		s += row("Underruns", underruns)
	}
	return s
}

// renderControls renders volume status
func (m Model) renderControls() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}
	return row("Volume", fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon))
}

// renderDebug renders raw counters
func (m Model) renderDebug() string {
	s := row("Enqueued", fmt.Sprintf("%d units", m.enqueued))
	s += row("Played", fmt.Sprintf("%d units", m.played))
	if m.startupDelay > 0 {
		s += row("Startup", m.startupDelay.Round(time.Millisecond).String())
	}
	return s
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		m.volume = min(m.volume+volumeStep, 100)
		m.sendVolume()
	case "down":
		m.volume = max(m.volume-volumeStep, 0)
		m.sendVolume()
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendVolume forwards the current volume to the player without blocking the UI
func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.URL != "" {
		m.url = msg.URL
	}
	if msg.Format != "" {
		m.format = msg.Format
		m.encoding = msg.Encoding
	}
	if msg.State != "" {
		m.state = msg.State
	}
	if msg.Units != 0 || msg.BytesReceived != 0 {
		m.units = msg.Units
		m.bytesReceived = msg.BytesReceived
	}
	if msg.Enqueued != 0 || msg.Played != 0 {
		m.enqueued = msg.Enqueued
		m.played = msg.Played
		m.underruns = msg.Underruns
		m.buffered = msg.Buffered
	}
	if msg.QueueCapacity != 0 {
		m.queueLength = msg.QueueLength
		m.queueCapacity = msg.QueueCapacity
	}
	if msg.StartupDelay != 0 {
		m.startupDelay = msg.StartupDelay
	}
	if msg.Paused != nil {
		m.paused = *msg.Paused
	}
	if msg.Volume != nil {
		m.volume = *msg.Volume
	}
	if msg.Muted != nil {
		m.muted = *msg.Muted
	}
}

// Utility functions
func renderBar(value, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(max(value*width/total, 0), width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
