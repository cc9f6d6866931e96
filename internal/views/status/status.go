package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/layer97/pulse/internal/client"
	"github.com/layer97/pulse/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Status client.Status
	URL    string
	UserID string
	// Active is the display name of the agent currently composing, if any.
	Active string
	// ConnectErr is the most recent connect failure, cleared once open.
	ConnectErr string
	Width      int
}

// New creates a status bar model.
func New(url, userID string) Model {
	return Model{Status: client.StatusClosed, URL: url, UserID: userID}
}

// SetStatus records a transport transition.
func (m *Model) SetStatus(s client.Status) {
	m.Status = s
	if s == client.StatusOpen {
		m.ConnectErr = ""
	}
}

// Label returns the human-readable connection label.
func Label(s client.Status) string {
	switch s {
	case client.StatusOpen:
		return "● Real-time Connected"
	case client.StatusConnecting:
		return "◌ Connecting..."
	case client.StatusClosing:
		return "○ Closing..."
	default:
		return "○ Disconnected"
	}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	connStr := lipgloss.NewStyle().Foreground(theme.StatusColor(string(m.Status))).Render(Label(m.Status))
	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")

	content := connStr + sep + theme.StyleDimmed.Render(m.URL)
	if m.UserID != "" {
		content += sep + fmt.Sprintf("user %s", m.UserID)
	}
	if m.Active != "" {
		content += sep + lipgloss.NewStyle().Foreground(theme.ColorThinking).Render(m.Active+" working")
	}
	if m.ConnectErr != "" {
		content += sep + theme.StyleError.Render(m.ConnectErr)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
