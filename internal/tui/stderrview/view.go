// Package stderrview shows one build's compiler output with in-text
// search.
package stderrview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/ui"
)

type Model struct {
	viewport viewport.Model
	build    model.BuildAttempt
	content  string
	cached   bool
	width    int
	height   int
	ready    bool
	loading  bool

	searchInput textinput.Model
	searching   bool
	searchQuery string
	matchLines  []int
	matchIndex  int
}

func New() Model {
	ti := textinput.New()
	ti.Placeholder = "Search stderr..."
	ti.CharLimit = 256
	return Model{searchInput: ti}
}

// SetBuild loads one attempt into the view. Passing builds usually
// have empty stderr; a placeholder keeps the viewport from looking
// broken.
func (m *Model) SetBuild(b model.BuildAttempt, cached bool) {
	m.build = b
	m.cached = cached
	m.content = b.Stderr
	if m.content == "" {
		m.content = "(no output captured)"
	}
	m.loading = false
	m.searchQuery = ""
	m.matchLines = nil
	m.matchIndex = 0
	if m.ready {
		m.viewport.SetContent(m.content)
		m.viewport.GotoTop()
	}
}

func (m *Model) SetLoading() {
	m.loading = true
}

func (m Model) IsSearching() bool {
	return m.searching
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			switch msg.String() {
			case "enter":
				query := m.searchInput.Value()
				if query != "" {
					m.searchQuery = query
					m.findMatches()
					m.viewport.SetContent(m.applyHighlights())
					if len(m.matchLines) > 0 {
						m.matchIndex = 0
						m.viewport.SetYOffset(m.matchLines[0])
					}
				}
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			case "esc":
				m.searching = false
				m.searchInput.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}

		switch {
		case key.Matches(msg, ui.Keys.Search):
			m.searching = true
			m.searchInput.SetValue("")
			m.searchInput.Focus()
			return m, textinput.Blink
		case key.Matches(msg, ui.Keys.NextMatch):
			if len(m.matchLines) > 0 {
				m.matchIndex = (m.matchIndex + 1) % len(m.matchLines)
				m.viewport.SetContent(m.applyHighlights())
				m.viewport.SetYOffset(m.matchLines[m.matchIndex])
			}
			return m, nil
		case key.Matches(msg, ui.Keys.PrevMatch):
			if len(m.matchLines) > 0 {
				m.matchIndex = (m.matchIndex - 1 + len(m.matchLines)) % len(m.matchLines)
				m.viewport.SetContent(m.applyHighlights())
				m.viewport.SetYOffset(m.matchLines[m.matchIndex])
			}
			return m, nil
		case key.Matches(msg, ui.Keys.Top):
			m.viewport.GotoTop()
			return m, nil
		case key.Matches(msg, ui.Keys.Bottom):
			m.viewport.GotoBottom()
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		headerH := 1
		if m.searching {
			headerH = 2
		}
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerH)
			m.ready = true
			if m.content != "" {
				m.viewport.SetContent(m.applyHighlights())
			}
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerH
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) findMatches() {
	m.matchLines = nil
	if m.searchQuery == "" || m.content == "" {
		return
	}
	query := strings.ToLower(m.searchQuery)
	for i, line := range strings.Split(m.content, "\n") {
		if strings.Contains(strings.ToLower(line), query) {
			m.matchLines = append(m.matchLines, i)
		}
	}
}

func (m Model) applyHighlights() string {
	if m.searchQuery == "" || len(m.matchLines) == 0 {
		return m.content
	}

	matchSet := make(map[int]bool, len(m.matchLines))
	for _, idx := range m.matchLines {
		matchSet[idx] = true
	}
	currentLine := -1
	if m.matchIndex >= 0 && m.matchIndex < len(m.matchLines) {
		currentLine = m.matchLines[m.matchIndex]
	}

	highlight := lipgloss.NewStyle().Background(lipgloss.Color("#374151"))
	current := lipgloss.NewStyle().Background(lipgloss.Color("#92400E")).Bold(true)

	lines := strings.Split(m.content, "\n")
	for i, line := range lines {
		if i == currentLine {
			lines[i] = current.Render(line)
		} else if matchSet[i] {
			lines[i] = highlight.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) View() string {
	if m.loading {
		return "\n  Loading build output..."
	}
	if m.build.Nightly == "" {
		return "\n  Select a cell to view its build output"
	}

	title := fmt.Sprintf(" %s %s @ %s [%s]",
		ui.StatusIcon(m.build.Status), m.build.Target, m.build.Nightly, m.build.Mode)
	header := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("#F9FAFB")).
		Render(fmt.Sprintf("%s  %3.f%%", title, m.viewport.ScrollPercent()*100))
	if m.cached {
		header += ui.StyleMuted.Render("  [cached]")
	}
	if m.searchQuery != "" && len(m.matchLines) > 0 {
		header += fmt.Sprintf("  [%d/%d matches]", m.matchIndex+1, len(m.matchLines))
	} else if m.searchQuery != "" {
		header += "  [no matches]"
	}
	hints := lipgloss.NewStyle().Foreground(ui.ColorMuted).Render(
		"  /:search  n/N:match  j/k:line  g/G:top/bot  esc:back")
	header += hints

	if m.searching {
		searchLine := "  /" + m.searchInput.View()
		return header + "\n" + searchLine + "\n" + m.viewport.View()
	}

	return header + "\n" + m.viewport.View()
}
