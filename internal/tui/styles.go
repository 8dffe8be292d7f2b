package tui

import "github.com/charmbracelet/lipgloss"

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#1a1a2e")).
			Padding(0, 2)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#333333"))

	emptyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(1, 2)

	hotkeysStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 2)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Padding(0, 2)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4444")).
			Padding(0, 2)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5599FF")).
			Align(lipgloss.Center)

	frameLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	urlStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5599FF"))

	errorPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FF4444")).
			Padding(1, 2)

	helpStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#FFD700")).
			Padding(1, 2)

	helpHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFD700"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#5599FF"))

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA"))

	stateIdle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	stateBusy     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	stateRunning  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	stateErrored  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4444"))
)
