package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/pathum-vimukthi/bookvault/internal/library"
)

var styles = NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

// Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title  lipgloss.Style
	ok     lipgloss.Style
	err    lipgloss.Style
	warn   lipgloss.Style
	help   lipgloss.Style
	tab    lipgloss.Style
	active lipgloss.Style
	panel  lipgloss.Style
}

func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title:  NewBold(t).MarginBottom(1),
		ok:     NewBold(s),
		err:    NewBold(e),
		warn:   NewStyle(w),
		help:   NewEm(h),
		tab:    NewStyle(h).Padding(0, 1),
		active: NewBold(t).Padding(0, 1).Underline(true),
		panel:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(t)).Padding(0, 2),
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

// StatsPanel renders library statistics as a bordered block.
// It is shared with the stats command.
func StatsPanel(s library.Stats) string {
	rows := lipgloss.JoinVertical(lipgloss.Left,
		styles.title.Render("Library"),
		statRow("Total", s.Total, styles.title),
		statRow("Completed", s.Completed, styles.ok),
		statRow("In progress", s.InProgress, styles.warn),
		statRow("Not started", s.NotStarted, styles.help),
	)
	return styles.panel.Render(rows)
}

func statRow(label string, n int, value lipgloss.Style) string {
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(14).Render(label),
		value.Render(strconv.Itoa(n)),
	)
}
