package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/Noratrieb/does-it-build/internal/ui"
)

// RenderHeader draws the top bar: data source on the left, live-stream
// state on the right.
func RenderHeader(source string, live bool, width int) string {
	left := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("#F9FAFB")).
		Render(fmt.Sprintf(" does-it-build | %s", source))

	var conn string
	if live {
		conn = lipgloss.NewStyle().Foreground(ui.ColorSuccess).Render("● live ")
	} else {
		conn = lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("○ polling ")
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(conn)
	if gap < 0 {
		gap = 0
	}
	padding := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.NewStyle().
		Background(ui.ColorHighlight).
		Width(width).
		Render(left + padding + conn)
}
