package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

const (
	green  = lipgloss.Color("#1DB954")
	red    = lipgloss.Color("#E22134")
	amber  = lipgloss.Color("#FFA42B")
	grey   = lipgloss.Color("#727272")
	trough = lipgloss.Color("#3E3E3E")
)

const barWidth = 30

// theme is the stylesheet shared by every view.
type theme struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	badge lipgloss.Style
	fill  lipgloss.Style
	empty lipgloss.Style
}

var styles = newTheme()

func newTheme() theme {
	return theme{
		title: lipgloss.NewStyle().Foreground(green).Bold(true).MarginBottom(1),
		ok:    lipgloss.NewStyle().Foreground(green).Bold(true),
		err:   lipgloss.NewStyle().Foreground(red).Bold(true),
		warn:  lipgloss.NewStyle().Foreground(amber),
		help:  lipgloss.NewStyle().Foreground(grey).Italic(true),
		badge: lipgloss.NewStyle().Foreground(lipgloss.Color("#000000")).Background(green).Padding(0, 1),
		fill:  lipgloss.NewStyle().Foreground(green),
		empty: lipgloss.NewStyle().Foreground(trough),
	}
}

// heading renders a section title without the bottom margin.
func (t theme) heading(s string) string {
	return t.title.UnsetMarginBottom().Render(s)
}

// bar renders step of total as a fixed width progress bar. A zero total renders an empty bar.
func (t theme) bar(step, total int) string {
	filled := 0
	if total > 0 {
		filled = min(step, total) * barWidth / total
	}
	return t.fill.Render(strings.Repeat("█", filled)) + t.empty.Render(strings.Repeat("░", barWidth-filled))
}
