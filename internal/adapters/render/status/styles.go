package status

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	good     lipgloss.Style
	warn     lipgloss.Style
	bad      lipgloss.Style
	key      lipgloss.Style
	value    lipgloss.Style
	faint    lipgloss.Style
	notebook lipgloss.Style
	section  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		good:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		warn:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		bad:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		value:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		faint:    lipgloss.NewStyle().Faint(true),
		notebook: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		section:  lipgloss.NewStyle().MarginTop(1),
	}
}
