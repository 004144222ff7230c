package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("#4D6BFE")
	muted  = lipgloss.Color("#8E8EA0")
	danger = lipgloss.Color("#F87171")

	paneStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#404045"))
	focusedPaneStyle = paneStyle.Copy().BorderForeground(accent)

	titleStyle      = lipgloss.NewStyle().Bold(true).Foreground(accent)
	rowStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#D4D4D8"))
	cursorRowStyle  = rowStyle.Copy().Background(lipgloss.Color("#2A2A30"))
	activeChatStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	menuStyle       = lipgloss.NewStyle().Foreground(muted).PaddingLeft(2)

	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A5B4FC"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	selectedMsgStyle    = lipgloss.NewStyle().Foreground(accent)

	helpStyle       = lipgloss.NewStyle().Foreground(muted)
	toastInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#34D399"))
	toastErrorStyle = lipgloss.NewStyle().Foreground(danger)
	dialogStyle     = lipgloss.NewStyle().Foreground(danger).Bold(true)
)
