// Package theme provides the Lip Gloss color palette and reusable styles
// for the pulse console. It is a leaf package with no internal imports
// to avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Agent colors, keyed by routing key.
var (
	ColorCD      = lipgloss.Color("#a855f7")
	ColorSA      = lipgloss.Color("#3b82f6")
	ColorTD      = lipgloss.Color("#06b6d4")
	ColorCE      = lipgloss.Color("#22c55e")
	ColorAD      = lipgloss.Color("#f59e0b")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// Agent status colors.
var (
	ColorThinking = lipgloss.Color("#2563eb")
	ColorIdle     = lipgloss.Color("#4b5563")
)

// Transport status colors.
var (
	ColorOpen       = lipgloss.Color("#22c55e")
	ColorConnecting = lipgloss.Color("#eab308")
	ColorClosed     = lipgloss.Color("#dc2626")
)

// Node health colors.
var (
	ColorOnline  = lipgloss.Color("#22c55e")
	ColorOffline = lipgloss.Color("#dc2626")
	ColorUnknown = lipgloss.Color("#9ca3af")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorBg      = lipgloss.Color("#111827")
	ColorGold    = lipgloss.Color("#d4a017")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
)

// AgentColor returns the badge color for an agent key.
func AgentColor(key string) lipgloss.Color {
	switch key {
	case "CD":
		return ColorCD
	case "SA":
		return ColorSA
	case "TD":
		return ColorTD
	case "CE":
		return ColorCE
	case "AD":
		return ColorAD
	default:
		return ColorDefault
	}
}

// AgentBadge renders a colored "[KEY]" badge.
func AgentBadge(key string) string {
	if key == "" {
		key = "?"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(AgentColor(key)).Render("[" + key + "]")
}

// StatusColor returns the color for a transport status string.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "open":
		return ColorOpen
	case "connecting":
		return ColorConnecting
	default:
		return ColorClosed
	}
}

// HealthColor returns the color for a node health string.
func HealthColor(health string) lipgloss.Color {
	switch health {
	case "online":
		return ColorOnline
	case "offline":
		return ColorOffline
	default:
		return ColorUnknown
	}
}

// AgentStatusColor returns the color for a roster status string.
func AgentStatusColor(status string) lipgloss.Color {
	if status == "thinking" {
		return ColorThinking
	}
	return ColorIdle
}

// AgentStatusGlyph returns a Unicode glyph for a roster status string.
func AgentStatusGlyph(status string) string {
	switch status {
	case "thinking":
		return "●>"
	case "idle":
		return "○"
	default:
		return "·"
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleWarning = lipgloss.NewStyle().
			Foreground(ColorWarning)

	StyleError = lipgloss.NewStyle().
			Foreground(ColorDanger)
)
