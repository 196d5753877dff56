package main

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4F46E5"))
	metaStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	tagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#4338CA")).Background(lipgloss.Color("#E0E7FF")).Padding(0, 1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#16A34A"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DC2626"))
	blockStyle   = lipgloss.NewStyle().PaddingLeft(2).Width(88)
)

func renderTags(tags []string) string {
	rendered := make([]string, 0, len(tags))
	for _, t := range tags {
		rendered = append(rendered, tagStyle.Render(t))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
