package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray

	// Convenience styles for colors
	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Warning = lipgloss.NewStyle().Foreground(WarningColor)
	Error   = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)
	Text    = lipgloss.NewStyle().Foreground(TextColor)

	// Agent status colors
	StatusPending   = lipgloss.Color("#9CA3AF") // Gray
	StatusThinking  = lipgloss.Color("#60A5FA") // Blue
	StatusRetrying  = lipgloss.Color("#F59E0B") // Amber
	StatusAgreed    = lipgloss.Color("#10B981") // Green
	StatusDisagreed = lipgloss.Color("#FB923C") // Orange
	StatusFailed    = lipgloss.Color("#F87171") // Red

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)
)

// StatusColor returns the color for an agent status.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "pending":
		return StatusPending
	case "thinking":
		return StatusThinking
	case "retrying":
		return StatusRetrying
	case "agreed":
		return StatusAgreed
	case "disagreed":
		return StatusDisagreed
	case "failed":
		return StatusFailed
	default:
		return MutedColor
	}
}

// StatusIcon returns the icon for an agent status.
func StatusIcon(status string) string {
	switch status {
	case "pending":
		return "○"
	case "thinking":
		return "●"
	case "retrying":
		return "↻"
	case "agreed":
		return "✓"
	case "disagreed":
		return "≠"
	case "failed":
		return "✗"
	default:
		return "●"
	}
}

// Reason renders a session termination reason.
func Reason(reason string) string {
	switch reason {
	case "converged":
		return SuccessMsg.Render(reason)
	case "budget_exhausted", "canceled":
		return WarningMsg.Render(reason)
	default:
		return ErrorMsg.Render(reason)
	}
}
