package tui

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	neonCyan   = lipgloss.Color("51")
	neonGreen  = lipgloss.Color("46")
	neonYellow = lipgloss.Color("226")
	neonRed    = lipgloss.Color("196")
	dimGray    = lipgloss.Color("240")
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(neonCyan).
			Bold(true).
			Padding(0, 1)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(neonCyan).
			Padding(0, 1)

	statStyle = lipgloss.NewStyle().
			Foreground(neonCyan)

	successStyle = lipgloss.NewStyle().
			Foreground(neonGreen)

	partialStyle = lipgloss.NewStyle().
			Foreground(neonYellow)

	failStyle = lipgloss.NewStyle().
			Foreground(neonRed)

	dimStyle = lipgloss.NewStyle().
			Foreground(dimGray)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimGray).
			Padding(1, 0, 0, 1)
)
