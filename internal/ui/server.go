// ABOUTME: Server TUI for displaying active streams and totals
// ABOUTME: Real-time server status display using bubbletea
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ServerStatus holds server state for the TUI
type ServerStatus struct {
	Name      string
	Addr      string
	Endpoints []string
	Served    int64
	BytesSent int64
	Streams   []StreamStatus
}

// StreamStatus describes one stream being served
type StreamStatus struct {
	ID        string
	Path      string
	Remote    string
	Transport string
	Started   time.Time
	Bytes     int64
}

// ServerTUI manages the server TUI
type ServerTUI struct {
	program  *tea.Program
	updates  chan ServerStatus
	quitChan chan struct{}
}

type serverModel struct {
	status    ServerStatus
	startTime time.Time
	quitting  bool
	quitChan  chan struct{}
}

type tickMsg time.Time
type serverStatusMsg ServerStatus

func (m serverModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m serverModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			select {
			case m.quitChan <- struct{}{}:
			default:
			}
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case serverStatusMsg:
		m.status = ServerStatus(msg)
	}

	return m, nil
}

func (m serverModel) View() string {
	if m.quitting {
		return "Shutting down server...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("pcmstream server"))
	b.WriteString("\n")

	b.WriteString(row("Server", m.status.Name))
	b.WriteString(row("Address", m.status.Addr))
	b.WriteString(row("Uptime", time.Since(m.startTime).Round(time.Second).String()))
	b.WriteString(row("Streams", strings.Join(m.status.Endpoints, " ")))
	b.WriteString(row("Served", fmt.Sprintf("%d streams, %s", m.status.Served, formatBytes(m.status.BytesSent))))
	b.WriteString("\n")

	b.WriteString(warnStyle.Bold(true).Render(fmt.Sprintf("Active Streams (%d)", len(m.status.Streams))))
	b.WriteString("\n\n")

	if len(m.status.Streams) == 0 {
		b.WriteString(valueStyle.Render("  No active streams"))
		b.WriteString("\n")
	} else {
		for _, st := range m.status.Streams {
			b.WriteString(fmt.Sprintf("  • %s %s", st.Path, st.Remote))
			b.WriteString(valueStyle.Render(fmt.Sprintf(" (%s, %s, %s)",
				st.Transport, formatBytes(st.Bytes), time.Since(st.Started).Round(time.Second))))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// NewServerTUI creates a server TUI. It stops when ctx is cancelled.
func NewServerTUI(ctx context.Context, status ServerStatus) *ServerTUI {
	t := &ServerTUI{
		updates:  make(chan ServerStatus, 10),
		quitChan: make(chan struct{}, 1),
	}

	m := serverModel{
		status:    status,
		startTime: time.Now(),
		quitChan:  t.quitChan,
	}
	t.program = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	return t
}

// Run runs the TUI until the user quits or the context is cancelled
func (t *ServerTUI) Run() error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case status := <-t.updates:
				t.program.Send(serverStatusMsg(status))
			case <-done:
				return
			}
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI without blocking
func (t *ServerTUI) Update(status ServerStatus) {
	select {
	case t.updates <- status:
	default:
	}
}

// Stop stops the TUI
func (t *ServerTUI) Stop() {
	t.program.Quit()
}

// QuitChan returns the channel that signals when user wants to quit
func (t *ServerTUI) QuitChan() <-chan struct{} {
	return t.quitChan
}
