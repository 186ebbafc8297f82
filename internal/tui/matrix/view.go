// Package matrix renders the build grid as a navigable table. One
// record store per mode; every filter or axis change re-derives the
// grid from scratch.
package matrix

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Noratrieb/does-it-build/internal/grid"
	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/ui"
)

const (
	maxLabelWidth = 28
	maxCellWidth  = 12
)

type Model struct {
	stores      map[model.Mode]*grid.RecordStore
	mode        model.Mode
	orientation grid.Orientation
	filter      grid.FilterState
	grid        grid.Grid

	cursorRow int
	cursorCol int
	rowOffset int
	colOffset int

	searchInput textinput.Model
	searching   bool

	width   int
	height  int
	loading bool
	err     error
}

func New(mode model.Mode, o grid.Orientation) Model {
	stores := make(map[model.Mode]*grid.RecordStore, len(model.Modes()))
	for _, m := range model.Modes() {
		stores[m] = grid.NewRecordStore()
	}

	ti := textinput.New()
	ti.Placeholder = "filter targets..."
	ti.CharLimit = 128

	return Model{
		stores:      stores,
		mode:        mode,
		orientation: o,
		searchInput: ti,
		loading:     true,
	}
}

// SetRecords replaces the data wholesale. The batch is partitioned by
// mode first; a malformed record rejects the batch and keeps the
// previous grid.
func (m *Model) SetRecords(records []model.BuildAttempt) error {
	parts := model.PartitionByMode(records)
	for _, mode := range model.Modes() {
		if err := m.stores[mode].Update(parts[mode]); err != nil {
			return err
		}
	}
	m.loading = false
	m.err = nil
	m.refresh()
	return nil
}

// SetError records a load failure. Existing data stays on screen; the
// error only renders when there is nothing better to show.
func (m *Model) SetError(err error) {
	m.loading = false
	m.err = err
}

func (m Model) Mode() model.Mode              { return m.mode }
func (m Model) Orientation() grid.Orientation { return m.orientation }
func (m Model) Filter() grid.FilterState      { return m.filter }
func (m Model) IsSearching() bool             { return m.searching }

// CycleMode advances to the next build mode and re-derives.
func (m *Model) CycleMode() {
	modes := model.Modes()
	for i, mode := range modes {
		if mode == m.mode {
			m.mode = modes[(i+1)%len(modes)]
			break
		}
	}
	m.refresh()
}

// SelectedCell returns the cell under the cursor.
func (m Model) SelectedCell() (grid.Cell, bool) {
	if m.cursorRow >= len(m.grid.Rows) {
		return grid.Cell{}, false
	}
	row := m.grid.Rows[m.cursorRow]
	if m.cursorCol >= len(row.Cells) {
		return grid.Cell{}, false
	}
	return row.Cells[m.cursorCol], true
}

// SelectedNightly names the nightly under the cursor. Both orientations
// can answer this: one axis is always nightlies.
func (m Model) SelectedNightly() string {
	if len(m.grid.Rows) == 0 {
		return ""
	}
	if m.grid.Orientation == grid.NightlyMajor {
		return m.grid.Rows[m.cursorRow].Label
	}
	if m.cursorCol+1 < len(m.grid.Header) {
		return m.grid.Header[m.cursorCol+1]
	}
	return ""
}

func (m *Model) refresh() {
	m.grid = grid.Render(m.stores[m.mode], m.filter, m.orientation)
	m.clampCursor()
}

func (m *Model) clampCursor() {
	rows := len(m.grid.Rows)
	cols := len(m.grid.Header) - 1
	if m.cursorRow >= rows {
		m.cursorRow = rows - 1
	}
	if m.cursorRow < 0 {
		m.cursorRow = 0
	}
	if m.cursorCol >= cols {
		m.cursorCol = cols - 1
	}
	if m.cursorCol < 0 {
		m.cursorCol = 0
	}
	m.ensureVisible()
}

func (m *Model) ensureVisible() {
	visRows, visCols := m.visibleRows(), m.visibleCols()
	if m.cursorRow < m.rowOffset {
		m.rowOffset = m.cursorRow
	}
	if m.cursorRow >= m.rowOffset+visRows {
		m.rowOffset = m.cursorRow - visRows + 1
	}
	if m.cursorCol < m.colOffset {
		m.colOffset = m.cursorCol
	}
	if m.cursorCol >= m.colOffset+visCols {
		m.colOffset = m.cursorCol - visCols + 1
	}
}

// visibleRows is the table body budget: info line, column header and
// the cursor cell line take three.
func (m Model) visibleRows() int {
	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m Model) visibleCols() int {
	cols := (m.width - m.labelWidth() - 3) / m.cellWidth()
	if cols < 1 {
		cols = 1
	}
	return cols
}

func (m Model) labelWidth() int {
	w := 0
	if len(m.grid.Header) > 0 {
		w = len(m.grid.Header[0])
	}
	for _, r := range m.grid.Rows {
		if len(r.Label) > w {
			w = len(r.Label)
		}
	}
	if w > maxLabelWidth {
		w = maxLabelWidth
	}
	return w
}

func (m Model) cellWidth() int {
	w := 4
	if len(m.grid.Header) < 2 {
		return w
	}
	for _, h := range m.grid.Header[1:] {
		if len(h)+2 > w {
			w = len(h) + 2
		}
	}
	if w > maxCellWidth {
		w = maxCellWidth
	}
	return w
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.searching {
			return m.updateSearch(msg)
		}
		switch {
		case key.Matches(msg, ui.Keys.Search):
			m.searching = true
			m.searchInput.SetValue(m.filter.Search)
			m.searchInput.CursorEnd()
			m.searchInput.Focus()
			return m, textinput.Blink
		case key.Matches(msg, ui.Keys.FailingOnly):
			m.filter.FailingOnly = !m.filter.FailingOnly
			m.refresh()
		case key.Matches(msg, ui.Keys.Flip):
			m.orientation = m.orientation.Flip()
			m.cursorRow, m.cursorCol = 0, 0
			m.rowOffset, m.colOffset = 0, 0
			m.refresh()
		case key.Matches(msg, ui.Keys.Mode):
			m.CycleMode()
		case key.Matches(msg, ui.Keys.Up):
			m.cursorRow--
			m.clampCursor()
		case key.Matches(msg, ui.Keys.Down):
			m.cursorRow++
			m.clampCursor()
		case key.Matches(msg, ui.Keys.Left):
			m.cursorCol--
			m.clampCursor()
		case key.Matches(msg, ui.Keys.Right):
			m.cursorCol++
			m.clampCursor()
		case key.Matches(msg, ui.Keys.PageUp):
			m.cursorRow -= m.visibleRows()
			m.clampCursor()
		case key.Matches(msg, ui.Keys.PageDown):
			m.cursorRow += m.visibleRows()
			m.clampCursor()
		case key.Matches(msg, ui.Keys.Top):
			m.cursorRow = 0
			m.clampCursor()
		case key.Matches(msg, ui.Keys.Bottom):
			m.cursorRow = len(m.grid.Rows) - 1
			m.clampCursor()
		case key.Matches(msg, ui.Keys.FirstCol):
			m.cursorCol = 0
			m.clampCursor()
		case key.Matches(msg, ui.Keys.LastCol):
			m.cursorCol = len(m.grid.Header) - 2
			m.clampCursor()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
	}

	return m, nil
}

// updateSearch feeds keystrokes to the filter input. The grid
// re-derives after every edit, not just on enter.
func (m Model) updateSearch(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		return m, nil
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.filter.Search = ""
		m.refresh()
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	if v := m.searchInput.Value(); v != m.filter.Search {
		m.filter.Search = v
		m.refresh()
	}
	return m, cmd
}

func (m Model) View() string {
	if m.loading {
		return "\n  Loading build matrix..."
	}
	if m.err != nil && m.stores[m.mode].Len() == 0 {
		return fmt.Sprintf("\n  Error: %v", m.err)
	}
	if len(m.grid.Rows) == 0 {
		if m.filter.Search != "" || m.filter.FailingOnly {
			return m.infoLine() + "\n\n  No targets match the current filters."
		}
		return m.infoLine() + "\n\n  No builds recorded yet."
	}

	var b strings.Builder
	b.WriteString(m.infoLine())
	b.WriteString("\n")
	b.WriteString(m.headerLine())
	b.WriteString("\n")

	visRows := m.visibleRows()
	end := m.rowOffset + visRows
	if end > len(m.grid.Rows) {
		end = len(m.grid.Rows)
	}
	for i := m.rowOffset; i < end; i++ {
		b.WriteString(m.rowLine(i))
		b.WriteString("\n")
	}

	b.WriteString(m.cellLine())
	return b.String()
}

func (m Model) infoLine() string {
	if m.searching {
		return " /" + m.searchInput.View()
	}

	parts := []string{
		"mode:" + ui.StyleInfo.Render(string(m.mode)),
		"by:" + string(m.orientation),
	}
	if m.filter.Search != "" {
		parts = append(parts, fmt.Sprintf("filter:%q", m.filter.Search))
	}
	if m.filter.FailingOnly {
		parts = append(parts, ui.StyleWarning.Render("failing only"))
	}
	return " " + strings.Join(parts, "  ")
}

func (m Model) headerLine() string {
	labelW, cellW := m.labelWidth(), m.cellWidth()

	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(ui.StyleMuted.Render(pad(truncate(m.grid.Header[0], labelW), labelW)))
	b.WriteString(" ")

	visCols := m.visibleCols()
	cols := m.grid.Header[1:]
	end := m.colOffset + visCols
	if end > len(cols) {
		end = len(cols)
	}
	for c := m.colOffset; c < end; c++ {
		label := pad(truncate(cols[c], cellW-1), cellW)
		if c == m.cursorCol {
			b.WriteString(lipgloss.NewStyle().Bold(true).Render(label))
		} else {
			b.WriteString(ui.StyleMuted.Render(label))
		}
	}
	return b.String()
}

func (m Model) rowLine(row int) string {
	labelW, cellW := m.labelWidth(), m.cellWidth()
	r := m.grid.Rows[row]

	var b strings.Builder
	b.WriteString(" ")
	label := pad(truncate(r.Label, labelW), labelW)
	if row == m.cursorRow {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(label))
	} else {
		b.WriteString(label)
	}
	b.WriteString(" ")

	visCols := m.visibleCols()
	end := m.colOffset + visCols
	if end > len(r.Cells) {
		end = len(r.Cells)
	}
	left := (cellW - 1) / 2
	right := cellW - 1 - left
	for c := m.colOffset; c < end; c++ {
		selected := row == m.cursorRow && c == m.cursorCol
		b.WriteString(strings.Repeat(" ", left))
		b.WriteString(cellGlyph(r.Cells[c], selected))
		b.WriteString(strings.Repeat(" ", right))
	}
	return b.String()
}

// cellLine describes the cursor cell in full, since the table truncates
// long axis labels.
func (m Model) cellLine() string {
	cell, ok := m.SelectedCell()
	if !ok {
		return ""
	}

	pos := ui.StyleMuted.Render(fmt.Sprintf("  (row %d/%d)", m.cursorRow+1, len(m.grid.Rows)))
	if !cell.Present {
		target, nightly := m.cursorTarget(), m.SelectedNightly()
		return fmt.Sprintf(" %s @ %s [%s]: %s%s",
			target, nightly, m.mode, ui.StyleMuted.Render("never attempted"), pos)
	}
	return fmt.Sprintf(" %s @ %s [%s]: %s%s",
		cell.Target, cell.Nightly, cell.Mode,
		ui.StatusStyle(cell.Status).Render(string(cell.Status)), pos)
}

func (m Model) cursorTarget() string {
	if m.grid.Orientation == grid.TargetMajor {
		return m.grid.Rows[m.cursorRow].Label
	}
	if m.cursorCol+1 < len(m.grid.Header) {
		return m.grid.Header[m.cursorCol+1]
	}
	return ""
}

func cellGlyph(c grid.Cell, selected bool) string {
	var glyph string
	var style lipgloss.Style
	switch {
	case !c.Present:
		glyph, style = "·", ui.StyleMuted
	case c.Status == model.StatusPass:
		glyph, style = "V", ui.StyleSuccess
	default:
		glyph, style = "X", ui.StyleFailure
	}
	if selected {
		style = style.Reverse(true).Bold(true)
	}
	return style.Render(glyph)
}

func truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-3] + "..."
}

func pad(s string, w int) string {
	if len(s) >= w {
		return s
	}
	return s + strings.Repeat(" ", w-len(s))
}
