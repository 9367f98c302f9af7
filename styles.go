package main

import "github.com/charmbracelet/lipgloss"

var theme Theme

// Styles are rebuilt by buildStyles whenever the theme changes.
var (
	metaPillStyle      lipgloss.Style
	metaMutedPillStyle lipgloss.Style
	metaAlertPillStyle lipgloss.Style
	pausedPillStyle    lipgloss.Style
	noticePillStyle    lipgloss.Style

	summaryChipStyle  lipgloss.Style
	summaryLabelStyle lipgloss.Style
	summaryValueStyle lipgloss.Style

	listStyle        lipgloss.Style
	detailsStyle     lipgloss.Style
	panelTitleStyle  lipgloss.Style
	placeholderStyle lipgloss.Style
	spinnerStyle     lipgloss.Style

	tableHeaderStyle   lipgloss.Style
	tableSelectedStyle lipgloss.Style
	statusBadgeStyle   lipgloss.Style

	searchHighlightStyle lipgloss.Style
	viewerBorderStyle    lipgloss.Style
	viewerTitleStyle     lipgloss.Style
)

func buildStyles(t Theme) {
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Background(t.SurfaceAlt).
		Padding(1, 2)

	metaPillStyle = lipgloss.NewStyle().
		Foreground(t.Accent).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Bold(true).
		Align(lipgloss.Center)
	metaMutedPillStyle = metaPillStyle.
		Foreground(t.TextMuted)
	metaAlertPillStyle = metaPillStyle.
		Background(t.Alert).
		Foreground(t.TextOnAccent).
		BorderForeground(t.Alert)
	pausedPillStyle = metaMutedPillStyle.
		Background(t.Paused).
		Foreground(t.TextOnAccent)
	noticePillStyle = metaPillStyle.
		Foreground(t.Notice)

	summaryChipStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1).
		Align(lipgloss.Left).
		MarginRight(1)
	summaryLabelStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Bold(true)
	summaryValueStyle = lipgloss.NewStyle().
		Foreground(t.TextStrong).
		Bold(true)

	listStyle = panel
	detailsStyle = panel
	panelTitleStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Bold(true).
		MarginBottom(1)
	placeholderStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Italic(true)
	spinnerStyle = lipgloss.NewStyle().
		Foreground(t.Accent)

	tableHeaderStyle = lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Bold(true).
		Align(lipgloss.Left).
		Padding(0, 1)
	tableSelectedStyle = lipgloss.NewStyle().
		Foreground(t.SelectionFg).
		Background(t.SelectionBg).
		Padding(0, 1)
	statusBadgeStyle = lipgloss.NewStyle().
		Padding(0, 1).
		Bold(true).
		Foreground(t.TextOnAccent)

	searchHighlightStyle = lipgloss.NewStyle().
		Background(t.SearchBg).
		Foreground(t.SearchFg).
		Bold(true)
	viewerBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Accent)
	viewerTitleStyle = lipgloss.NewStyle().
		Foreground(t.TextStrong).
		Bold(true)
}

// stateColor is the display color of a job state.
func stateColor(kind StateKind) lipgloss.TerminalColor {
	switch kind {
	case StateRunning:
		return theme.StateRunning
	case StatePending:
		return theme.StatePending
	case StateCompleted:
		return theme.StateCompleted
	case StateCancelled:
		return theme.StateCancelled
	case StateFailed:
		return theme.StateFailed
	case StateHeader:
		return theme.TextMuted
	default:
		return theme.TextDim
	}
}
