// Package debug provides a scrollable event log overlay fed by the
// message bus.
package debug

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/theme"
)

const maxEntries = 200

// Entry kinds.
const (
	KindInbound = "in"
	KindConn    = "conn"
	KindOut     = "out"
	KindErr     = "err"
)

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string
	Message string
}

// Model holds debug log state.
type Model struct {
	Entries []Entry
	Offset  int // scroll offset (from bottom)

	now func() time.Time
}

// New creates an empty debug model.
func New() Model {
	return Model{now: time.Now}
}

// Add appends a log entry and caps the buffer.
func (m *Model) Add(kind, message string) {
	now := time.Now
	if m.now != nil {
		now = m.now
	}
	m.Entries = append(m.Entries, Entry{
		Time:    now(),
		Kind:    kind,
		Message: message,
	})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	// Reset scroll to bottom on new entry.
	m.Offset = 0
}

// Record appends a line describing a bus event.
func (m *Model) Record(ev client.Event) {
	switch ev.Kind {
	case client.EventStatus:
		m.Add(KindConn, string(ev.Status))
	case client.EventMessage:
		kind := KindInbound
		if ev.Message.Type == client.MsgAgentError {
			kind = KindErr
		}
		m.Add(kind, Describe(ev.Message))
	}
}

// Describe summarises an inbound message on one line.
func Describe(msg client.InboundMessage) string {
	var b strings.Builder
	b.WriteString(string(msg.Type))
	if msg.Agent != "" {
		b.WriteString(" agent=" + msg.Agent)
	}
	switch {
	case msg.Error != "":
		b.WriteString(" error=" + msg.Error)
	case msg.Sync != nil:
		fmt.Fprintf(&b, " active=%s location=%s", msg.Sync.ActiveNode, msg.Sync.Location)
	case msg.Message != "":
		b.WriteString(fmt.Sprintf(" (%d chars)", len([]rune(msg.Message))))
	}
	return b.String()
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	max := len(m.Entries) - 1
	if max < 0 {
		max = 0
	}
	if m.Offset > max {
		m.Offset = max
	}
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the debug log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 6
	if visibleLines < 3 {
		visibleLines = 3
	}

	title := theme.StyleHeader.Render(" EVENT LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("pgup/pgdn:scroll  esc:close  %d entries", len(m.Entries)))

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  No events recorded yet.")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
		return panelStyle(innerW).Render(content)
	}

	end := len(m.Entries) - m.Offset
	start := end - visibleLines
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		e := m.Entries[i]
		tsStr := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kindStr := lipgloss.NewStyle().Foreground(kindToColor(e.Kind)).Width(4).Render(e.Kind)
		msgStr := e.Message
		if r := []rune(msgStr); len(r) > innerW-20 && innerW > 23 {
			msgStr = string(r[:innerW-23]) + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", tsStr, kindStr, msgStr))
	}

	body := strings.Join(lines, "\n")
	scrollIndicator := ""
	if m.Offset > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body, scrollIndicator, help)
	return panelStyle(innerW).Render(content)
}

func kindToColor(kind string) lipgloss.Color {
	switch kind {
	case KindInbound:
		return theme.ColorThinking
	case KindErr:
		return theme.ColorDanger
	case KindConn:
		return theme.ColorConnecting
	case KindOut:
		return theme.ColorGold
	default:
		return theme.ColorDimmed
	}
}
