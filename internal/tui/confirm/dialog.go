// Package confirm is a y/n modal. The answer comes back as a ResultMsg
// so the caller decides what a confirmation actually does.
package confirm

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Noratrieb/does-it-build/internal/ui"
)

type ResultMsg struct {
	Confirmed bool
	Action    string
	Data      any
}

type Model struct {
	Title   string
	Message string
	Action  string
	Data    any

	active   bool
	selected bool // true when Yes is highlighted
}

func New(title, message, action string, data any) Model {
	return Model{
		Title:   title,
		Message: message,
		Action:  action,
		Data:    data,
		active:  true,
	}
}

func (m Model) IsActive() bool { return m.active }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if !m.active {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			return m.answer(true)
		case "n", "N", "esc":
			return m.answer(false)
		case "enter":
			return m.answer(m.selected)
		case "tab", "left", "right", "h", "l":
			m.selected = !m.selected
		}
	}
	return m, nil
}

func (m Model) answer(confirmed bool) (Model, tea.Cmd) {
	m.active = false
	return m, func() tea.Msg {
		return ResultMsg{Confirmed: confirmed, Action: m.Action, Data: m.Data}
	}
}

func (m Model) View() string {
	if !m.active {
		return ""
	}

	frame := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ui.ColorWarning).
		Padding(1, 2).
		Width(52)

	title := lipgloss.NewStyle().Bold(true).
		Foreground(ui.ColorWarning).
		Render(m.Title)

	yes := lipgloss.NewStyle().Padding(0, 1)
	no := lipgloss.NewStyle().Padding(0, 1)
	if m.selected {
		yes = yes.Bold(true).Background(ui.ColorSuccess).Foreground(lipgloss.Color("#F9FAFB"))
		no = no.Foreground(ui.ColorMuted)
	} else {
		yes = yes.Foreground(ui.ColorMuted)
		no = no.Bold(true).Background(ui.ColorFailure).Foreground(lipgloss.Color("#F9FAFB"))
	}

	body := fmt.Sprintf("%s\n\n%s\n\n%s  %s\n\ny/n to confirm, esc to cancel",
		title, m.Message, yes.Render("Yes"), no.Render("No"))

	return frame.Render(body)
}
