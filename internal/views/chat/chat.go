// Package chat renders the conversation thread with its in-flight
// indicator and owns the message input.
package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/projection"
	"github.com/layer97/pulse/internal/theme"
)

const (
	placeholder = "메시지를 입력하세요..."
	inputHeight = 3
	emptyThread = "에이전트에게 메시지를 보내보세요"
)

// Model holds the chat panel state.
type Model struct {
	Viewport viewport.Model
	Input    textinput.Model
	Spinner  spinner.Model

	snap     projection.ThreadSnapshot
	markdown bool
	renderer *glamour.TermRenderer
	rendered map[uint64]string
	width    int
	height   int
}

// New creates the chat panel. When markdown is set assistant replies are
// rendered with glamour.
func New(markdown bool) Model {
	input := textinput.New()
	input.Prompt = "❯ "
	input.Placeholder = placeholder
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorGold)

	return Model{
		Viewport: viewport.New(0, 0),
		Input:    input,
		Spinner:  sp,
		markdown: markdown,
		rendered: make(map[uint64]string),
	}
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

// SetSize lays the panel out in width x height cells.
func (m *Model) SetSize(width, height int) {
	if width == m.width && height == m.height {
		return
	}
	m.width, m.height = width, height
	m.Viewport.Width = width
	vh := height - inputHeight - 1
	if vh < 1 {
		vh = 1
	}
	m.Viewport.Height = vh
	m.Input.Width = width - 4
	m.rendered = make(map[uint64]string)
	m.renderer = nil
	if m.markdown && width > 8 {
		r, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(width-4),
		)
		if err == nil {
			m.renderer = r
		}
	}
	m.refresh(true)
}

// SetThread replaces the displayed thread. Unchanged versions are ignored.
func (m *Model) SetThread(snap projection.ThreadSnapshot) {
	if snap.Version == m.snap.Version {
		return
	}
	follow := m.Viewport.AtBottom() || len(m.snap.Messages) == 0
	m.snap = snap
	m.refresh(follow)
}

// Busy reports whether an assistant turn is in flight.
func (m Model) Busy() bool {
	return m.snap.Overlay.Active()
}

// Take returns the trimmed input and clears it. Blank input is left alone
// and reported as not ok.
func (m *Model) Take() (string, bool) {
	text := strings.TrimSpace(m.Input.Value())
	if text == "" {
		return "", false
	}
	m.Input.Reset()
	return text, true
}

// Update forwards input, scroll and spinner messages to the sub-models.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case spinner.TickMsg:
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		switch msg.String() {
		case "pgup", "pgdown", "up", "down":
			m.Viewport, cmd = m.Viewport.Update(msg)
			return m, cmd
		}
		m.Input, cmd = m.Input.Update(msg)
		return m, cmd
	case tea.MouseMsg:
		m.Viewport, cmd = m.Viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// View renders the thread, the in-flight indicator and the input line.
func (m Model) View() string {
	indicator := ""
	if ov := m.snap.Overlay; ov.Active() {
		text := ov.Text
		if ov.Agent != "" {
			text = theme.AgentBadge(ov.Agent) + " " + text
		}
		indicator = m.Spinner.View() + " " + text
	}
	input := lipgloss.NewStyle().
		Width(m.width-2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(m.Input.View())
	return lipgloss.JoinVertical(lipgloss.Left, m.Viewport.View(), indicator, input)
}

func (m *Model) refresh(follow bool) {
	m.Viewport.SetContent(m.renderThread())
	if follow {
		m.Viewport.GotoBottom()
	}
}

func (m *Model) renderThread() string {
	if len(m.snap.Messages) == 0 {
		return theme.StyleDimmed.Render(emptyThread)
	}
	blocks := make([]string, 0, len(m.snap.Messages))
	for _, msg := range m.snap.Messages {
		blocks = append(blocks, m.renderMessage(msg))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderMessage(msg projection.ChatMessage) string {
	header := m.header(msg)
	switch msg.Role {
	case projection.RoleAssistant:
		return header + "\n" + m.renderMarkdown(msg)
	case projection.RoleSystem:
		return header + "\n" + theme.StyleError.Render(msg.Content)
	default:
		return header + "\n" + msg.Content
	}
}

func (m *Model) header(msg projection.ChatMessage) string {
	var who string
	switch msg.Role {
	case projection.RoleUser:
		who = theme.StyleHeader.Render("You")
	case projection.RoleSystem:
		who = theme.StyleError.Render("System")
	default:
		name := msg.AgentName
		if name == "" {
			name = msg.Agent
		}
		if msg.Agent != "" {
			who = theme.AgentBadge(msg.Agent) + " " + name
		} else {
			who = theme.StyleHeader.Render("Assistant")
		}
	}
	return who + "  " + theme.StyleDimmed.Render(Clock(msg.Timestamp))
}

func (m *Model) renderMarkdown(msg projection.ChatMessage) string {
	if m.renderer == nil {
		return msg.Content
	}
	if out, ok := m.rendered[msg.ID]; ok {
		return out
	}
	out, err := m.renderer.Render(msg.Content)
	if err != nil {
		return msg.Content
	}
	out = strings.Trim(out, "\n")
	m.rendered[msg.ID] = out
	return out
}

// Clock renders a message timestamp as a Korean 12-hour clock in local time.
func Clock(ts string) string {
	t, ok := client.ParseTimestamp(ts)
	if !ok {
		return ts
	}
	return clock(t.Local())
}

func clock(t time.Time) string {
	period := "오전"
	if t.Hour() >= 12 {
		period = "오후"
	}
	h := t.Hour() % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%s %02d:%02d", period, h, t.Minute())
}
