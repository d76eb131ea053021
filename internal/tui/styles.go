package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentPrimary = lipgloss.Color("#7448C8")
	nodeColor     = lipgloss.Color("#FFFFFF")
	panelBG       = lipgloss.Color("#0f1218")
	mutedText     = lipgloss.Color("#8B93A7")
	warningText   = lipgloss.Color("#FF6B6B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	eraStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(nodeColor)

	languageStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentPrimary)

	formStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(nodeColor)

	modernCardStyle = lipgloss.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(accentPrimary).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Background(panelBG).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentPrimary).
			Padding(0, 1)

	progressStyle = lipgloss.NewStyle().
			Foreground(accentPrimary)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)
)
