// Package roster renders the agent sidebar. Each agent gets a status dot,
// a derived label and an activity bar eased toward its target with a
// damped spring.
package roster

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	"github.com/layer97/pulse/internal/projection"
	"github.com/layer97/pulse/internal/theme"
)

const (
	fps       = 30
	barWidth  = 12
	settleEps = 0.005
)

// FrameMsg advances the activity bar animation by one frame.
type FrameMsg struct{}

type bar struct {
	pos, vel float64
}

// Model holds the sidebar state.
type Model struct {
	Entries []projection.AgentEntry
	Width   int

	spring harmonica.Spring
	bars   map[string]*bar
}

// New creates an empty sidebar.
func New() Model {
	return Model{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 0.5),
		bars:   make(map[string]*bar),
	}
}

// Frame schedules the next animation frame.
func Frame() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg {
		return FrameMsg{}
	})
}

// SetEntries replaces the roster rows.
func (m *Model) SetEntries(entries []projection.AgentEntry) {
	m.Entries = entries
	for _, e := range entries {
		if _, ok := m.bars[e.Key]; !ok {
			m.bars[e.Key] = &bar{}
		}
	}
}

// Animate steps every bar one frame toward its target and reports whether
// any bar is still moving.
func (m *Model) Animate() bool {
	moving := false
	for _, e := range m.Entries {
		b := m.bars[e.Key]
		if b == nil {
			continue
		}
		target := target(e.Status)
		b.pos, b.vel = m.spring.Update(b.pos, b.vel, target)
		if abs(b.pos-target) < settleEps && abs(b.vel) < settleEps {
			b.pos, b.vel = target, 0
			continue
		}
		moving = true
	}
	return moving
}

// Level returns the current bar fill for key in [0, 1].
func (m Model) Level(key string) float64 {
	b := m.bars[key]
	if b == nil {
		return 0
	}
	return clamp(b.pos)
}

// Label returns the display label for a status.
func Label(s projection.AgentStatus) string {
	if s == projection.AgentThinking {
		return "Working"
	}
	return "Idle"
}

// View renders the sidebar.
func (m Model) View() string {
	width := m.Width
	if width < 28 {
		width = 28
	}
	lines := []string{theme.StyleHeader.Render("에이전트 상태"), ""}
	for _, e := range m.Entries {
		lines = append(lines, m.renderEntry(e))
	}
	lines = append(lines, "", theme.StyleDimmed.Render("메시지 키워드로 자동 선택"))
	return theme.StyleBorder.Width(width-2).Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func (m Model) renderEntry(e projection.AgentEntry) string {
	status := string(e.Status)
	glyph := lipgloss.NewStyle().Foreground(theme.AgentStatusColor(status)).Render(theme.AgentStatusGlyph(status))

	var b strings.Builder
	b.WriteString(glyph)
	b.WriteByte(' ')
	b.WriteString(theme.AgentBadge(e.Key))
	b.WriteByte(' ')
	b.WriteString(e.Name)
	b.WriteByte('\n')
	b.WriteString("   ")
	b.WriteString(renderBar(m.Level(e.Key), barWidth))
	b.WriteByte(' ')
	b.WriteString(lipgloss.NewStyle().Foreground(theme.AgentStatusColor(status)).Render(Label(e.Status)))
	if !e.LastUpdate.IsZero() {
		b.WriteString(theme.StyleDimmed.Render(fmt.Sprintf("  %s", e.LastUpdate.Local().Format("15:04"))))
	}
	return b.String()
}

func renderBar(level float64, width int) string {
	filled := int(level*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	on := lipgloss.NewStyle().Foreground(theme.ColorThinking)
	off := lipgloss.NewStyle().Foreground(theme.ColorDimmed)
	return on.Render(strings.Repeat("█", filled)) + off.Render(strings.Repeat("·", width-filled))
}

func target(s projection.AgentStatus) float64 {
	if s == projection.AgentThinking {
		return 1
	}
	return 0
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
