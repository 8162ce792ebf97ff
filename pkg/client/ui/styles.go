package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	PrimaryColor = lipgloss.Color("205")
	AccentColor  = lipgloss.Color("86")
	MutedColor   = lipgloss.Color("240")
	ErrorColor   = lipgloss.Color("196")
	WarningColor = lipgloss.Color("214")
	SelfColor    = lipgloss.Color("82")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	StatusStyle = lipgloss.NewStyle().
			Foreground(AccentColor)

	ErrorTextStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	MutedTextStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	MessageAuthorStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	MessageOwnAuthorStyle = lipgloss.NewStyle().
				Foreground(SelfColor).
				Bold(true)

	MessageTimeStyle = lipgloss.NewStyle().
				Foreground(MutedColor)

	InputLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Bold(true)

	PendingStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	MessagePaneStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(MutedColor).
				Padding(0, 1)
)
