// Package health renders the hybrid node monitor: which node is active,
// per-node health and how fresh the last sync and heartbeat are.
package health

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/projection"
	"github.com/layer97/pulse/internal/theme"
)

// Model holds the panel's latest projection state.
type Model struct {
	State projection.HealthState
	Width int
}

// New creates an empty health panel.
func New() Model {
	return Model{}
}

// Relative renders an ISO-8601 timestamp as elapsed time in Korean units.
// Older than a day falls back to the absolute local time. Unparsable input
// is returned unchanged.
func Relative(ts string, now time.Time) string {
	if strings.TrimSpace(ts) == "" {
		return "Never"
	}
	t, ok := client.ParseTimestamp(ts)
	if !ok {
		return ts
	}
	sec := int(now.Sub(t) / time.Second)
	if sec < 0 {
		sec = 0
	}
	switch {
	case sec < 60:
		return fmt.Sprintf("%d초 전", sec)
	case sec < 3600:
		return fmt.Sprintf("%d분 전", sec/60)
	case sec < 86400:
		return fmt.Sprintf("%d시간 전", sec/3600)
	default:
		return t.Local().Format("2006. 1. 2. 15:04:05")
	}
}

// NodeLabel returns the display name for a node.
func NodeLabel(n client.Node) string {
	switch n {
	case client.NodeMacbook:
		return "MacBook"
	case client.NodeGCPVM:
		return "GCP VM"
	default:
		if n == "" {
			return "unknown"
		}
		return string(n)
	}
}

// View renders the panel as of now.
func (m Model) View(now time.Time) string {
	width := m.Width
	if width < 40 {
		width = 40
	}
	title := theme.StyleHeader.Render("하이브리드 상태 모니터")

	snap := m.State.Sync
	if snap == nil {
		body := theme.StyleDimmed.Render("  Loading system state...")
		return panel(width).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body))
	}

	active := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.StyleDimmed.Render("Active Node  "),
		theme.StyleSelected.Render(NodeLabel(snap.ActiveNode)),
		theme.StyleDimmed.Render("    Location  "),
		snap.Location,
	)

	nodes := lipgloss.JoinHorizontal(lipgloss.Top,
		nodeCard(client.NodeMacbook, snap.Health.Macbook, snap.ActiveNode),
		"  ",
		nodeCard(client.NodeGCPVM, snap.Health.GCPVM, snap.ActiveNode),
	)

	timing := fmt.Sprintf("%s %s    %s %s",
		theme.StyleDimmed.Render("Last Sync:"), Relative(snap.LastSync, now),
		theme.StyleDimmed.Render("Last Heartbeat:"), Relative(snap.LastHeartbeat, now),
	)

	lines := []string{title, "", active, "", nodes, "", timing}
	if snap.PendingHandover {
		lines = append(lines, "", theme.StyleWarning.Render("⚠ Handover pending"))
	}
	if !m.State.ReceivedAt.IsZero() {
		lines = append(lines, "", theme.StyleDimmed.Render("Last updated: "+m.State.ReceivedAt.Local().Format("15:04:05")))
	}
	return panel(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func nodeCard(node client.Node, h client.NodeHealth, active client.Node) string {
	h = client.NormalizeNodeHealth(h)
	dot := lipgloss.NewStyle().Foreground(theme.HealthColor(string(h))).Render("●")
	lines := []string{
		dot + " " + theme.StyleHeader.Render(NodeLabel(node)),
		theme.StyleDimmed.Render("Status: ") + string(h),
	}
	if node == active {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.ColorGold).Render("● ACTIVE"))
	}
	return theme.StyleBorder.Width(22).Padding(0, 1).Render(strings.Join(lines, "\n"))
}

func panel(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width-2).
		Padding(0, 1).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder)
}
