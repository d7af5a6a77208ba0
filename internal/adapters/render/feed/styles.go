package feed

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	metricKey  lipgloss.Style
	metricVal  lipgloss.Style
	section    lipgloss.Style
	empty      lipgloss.Style
	timestamp  lipgloss.Style
	agent      lipgloss.Style
	actionType lipgloss.Style
	detail     lipgloss.Style
	success    lipgloss.Style
	failure    lipgloss.Style
	warning    lipgloss.Style
	help       lipgloss.Style
	barBracket lipgloss.Style
	barEmpty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		metricKey:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		metricVal:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")),
		section:    lipgloss.NewStyle().MarginTop(1),
		empty:      lipgloss.NewStyle().Faint(true),
		timestamp:  lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		agent:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		actionType: lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		success:    lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failure:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		warning:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		help:       lipgloss.NewStyle().Faint(true),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
