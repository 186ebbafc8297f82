package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Noratrieb/does-it-build/internal/model"
)

var (
	ColorPrimary   = lipgloss.Color("#7C3AED")
	ColorSuccess   = lipgloss.Color("#10B981")
	ColorFailure   = lipgloss.Color("#EF4444")
	ColorWarning   = lipgloss.Color("#F59E0B")
	ColorInfo      = lipgloss.Color("#3B82F6")
	ColorMuted     = lipgloss.Color("#6B7280")
	ColorBorder    = lipgloss.Color("#374151")
	ColorHighlight = lipgloss.Color("#1F2937")

	StylePane = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StylePaneFocused = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F9FAFB")).
			Background(ColorPrimary).
			Padding(0, 1)

	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleFailure = lipgloss.NewStyle().Foreground(ColorFailure)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo    = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted   = lipgloss.NewStyle().Foreground(ColorMuted)

	StyleMatch = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FCD34D")).
			Background(lipgloss.Color("#78350F"))
)

func StatusStyle(status model.Status) lipgloss.Style {
	switch status {
	case model.StatusPass:
		return StyleSuccess
	case model.StatusError:
		return StyleFailure
	default:
		return StyleMuted
	}
}

// StatusIcon renders the one-character cell glyph for a build outcome.
func StatusIcon(status model.Status) string {
	switch status {
	case model.StatusPass:
		return StyleSuccess.Render("V")
	case model.StatusError:
		return StyleFailure.Render("X")
	default:
		return StyleMuted.Render("?")
	}
}

// MissingIcon marks a combination that was never attempted.
func MissingIcon() string {
	return StyleMuted.Render("·")
}
