package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/cli/go-gh/v2/pkg/browser"

	"github.com/Noratrieb/does-it-build/internal/api"
	"github.com/Noratrieb/does-it-build/internal/cache"
	"github.com/Noratrieb/does-it-build/internal/config"
	"github.com/Noratrieb/does-it-build/internal/grid"
	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/ops"
	"github.com/Noratrieb/does-it-build/internal/tui/confirm"
	"github.com/Noratrieb/does-it-build/internal/tui/matrix"
	"github.com/Noratrieb/does-it-build/internal/tui/stderrview"
	"github.com/Noratrieb/does-it-build/internal/tui/summary"
	"github.com/Noratrieb/does-it-build/internal/ui"
)

type View int

const (
	ViewMatrix View = iota
	ViewSummary
)

// reconnectEventsMsg fires when a dropped event stream should be
// redialed.
type reconnectEventsMsg struct{}

type App struct {
	cfg      config.Client
	provider api.Provider
	client   *api.Client // nil when reading a local database
	stderrs  *cache.StderrCache
	browser  browser.Browser

	// Views
	matrixView    matrix.Model
	summaryView   summary.Model
	stderrView    stderrview.Model
	confirmDialog confirm.Model

	// Last snapshot that passed validation. Fetch failures keep it.
	records []model.BuildAttempt

	events   *api.Events
	eventsUp bool

	// State
	currentView      View
	width            int
	height           int
	status           string
	detailFullScreen bool
	showHelp         bool
}

func NewApp(cfg config.Client, provider api.Provider, stderrs *cache.StderrCache) App {
	client, _ := provider.(*api.Client)
	return App{
		cfg:         cfg,
		provider:    provider,
		client:      client,
		stderrs:     stderrs,
		browser:     browser.New("", io.Discard, io.Discard),
		matrixView:  matrix.New(cfg.Mode, cfg.Orientation),
		summaryView: summary.New(),
		stderrView:  stderrview.New(),
		currentView: ViewMatrix,
		status:      "Loading build matrix...",
	}
}

func (a App) Init() tea.Cmd {
	cmds := []tea.Cmd{a.fetchState(), a.scheduleRefresh()}
	if a.client != nil {
		cmds = append(cmds, a.connectEvents())
	}
	return tea.Batch(cmds...)
}

// --- Data fetching commands ---

func (a App) fetchState() tea.Cmd {
	p := a.provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		records, err := p.TargetState(ctx)
		if err != nil {
			return ui.StateLoadedMsg{Err: err}
		}
		return ui.StateLoadedMsg{Records: records}
	}
}

func (a App) fetchBuild(cell grid.Cell) tea.Cmd {
	p, sc := a.provider, a.stderrs
	return func() tea.Msg {
		if stderr, ok := sc.Get(cell.Nightly, cell.Target, cell.Mode); ok {
			return ui.BuildLoadedMsg{
				Nightly: cell.Nightly, Target: cell.Target, Mode: cell.Mode,
				Build: model.BuildAttempt{
					Nightly: cell.Nightly,
					Target:  cell.Target,
					Status:  cell.Status,
					Stderr:  stderr,
					Mode:    cell.Mode,
				},
				Cached: true,
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b, err := p.Build(ctx, cell.Nightly, cell.Target, cell.Mode)
		if err != nil {
			return ui.BuildLoadedMsg{Nightly: cell.Nightly, Target: cell.Target, Mode: cell.Mode, Err: err}
		}
		// Cache write errors are fine, the next open just refetches.
		_ = sc.Put(b.Nightly, b.Target, b.Mode, b.Stderr)
		return ui.BuildLoadedMsg{Nightly: b.Nightly, Target: b.Target, Mode: b.Mode, Build: b}
	}
}

// --- Action commands ---

func (a App) doTrigger(nightly string) tea.Cmd {
	p := a.provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return ui.TriggeredMsg{Nightly: nightly, Err: p.TriggerBuild(ctx, nightly)}
	}
}

func (a App) doTriggerBroken(nightlies []string) tea.Cmd {
	p := a.provider
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		result, err := ops.BulkRetrigger(ctx, p, nightlies, nil)
		msg := ui.BulkTriggeredMsg{
			Completed: result.Completed,
			Failed:    result.Failed,
			Total:     len(nightlies),
			Err:       err,
		}
		if msg.Err == nil && len(result.Errors) > 0 {
			msg.Err = result.Errors[0]
		}
		return msg
	}
}

func (a App) openBrowser(url string) tea.Cmd {
	b := a.browser
	return func() tea.Msg {
		if err := b.Browse(url); err != nil {
			return ui.StatusMsg{Text: fmt.Sprintf("Error opening browser: %v", err)}
		}
		return ui.StatusMsg{Text: "Opened " + url}
	}
}

func (a App) buildPageURL(cell grid.Cell) string {
	return strings.TrimSuffix(a.cfg.ServerURL, "/") + "/build?" + cell.Locator()
}

// --- Live events ---

func (a App) connectEvents() tea.Cmd {
	client := a.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		events, err := client.DialEvents(ctx)
		if err != nil {
			return ui.EventsConnectedMsg{Err: err}
		}
		return ui.EventsConnectedMsg{Events: events}
	}
}

func waitEvent(events *api.Events) tea.Cmd {
	return func() tea.Msg {
		ev, err := events.Next()
		if err != nil {
			return ui.EventMsg{Err: err}
		}
		return ui.EventMsg{Event: ev}
	}
}

func (a App) scheduleRefresh() tea.Cmd {
	return tea.Tick(a.cfg.RefreshInterval, func(time.Time) tea.Msg {
		return ui.RefreshTickMsg{}
	})
}

func scheduleReconnect() tea.Cmd {
	return tea.Tick(10*time.Second, func(time.Time) tea.Msg {
		return reconnectEventsMsg{}
	})
}

// --- Update ---

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Confirm dialog result arrives after the dialog deactivates itself.
	if result, ok := msg.(confirm.ResultMsg); ok {
		if result.Confirmed {
			switch result.Action {
			case "trigger-nightly":
				nightly := result.Data.(string)
				a.status = fmt.Sprintf("Queueing sweep of %s...", nightly)
				cmds = append(cmds, a.doTrigger(nightly))
			case "trigger-broken":
				nightlies := result.Data.([]string)
				a.status = fmt.Sprintf("Re-triggering %d broken nightlies...", len(nightlies))
				cmds = append(cmds, a.doTriggerBroken(nightlies))
			}
		}
		return &a, tea.Batch(cmds...)
	}

	if a.confirmDialog.IsActive() {
		var cmd tea.Cmd
		a.confirmDialog, cmd = a.confirmDialog.Update(msg)
		return &a, cmd
	}

	// Live target filtering: keys go straight to the matrix input.
	if _, isKey := msg.(tea.KeyMsg); isKey && !a.detailFullScreen &&
		a.currentView == ViewMatrix && a.matrixView.IsSearching() {
		var cmd tea.Cmd
		a.matrixView, cmd = a.matrixView.Update(msg)
		return &a, cmd
	}

	// In-stderr search: same. App-level keys must not fire mid-typing.
	if _, isKey := msg.(tea.KeyMsg); isKey && a.detailFullScreen && a.stderrView.IsSearching() {
		var cmd tea.Cmd
		a.stderrView, cmd = a.stderrView.Update(msg)
		return &a, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.propagateSize()

	case tea.KeyMsg:
		// Help overlay dismisses on any key
		if a.showHelp {
			a.showHelp = false
			return &a, nil
		}

		switch msg.String() {
		case "q", "ctrl+c":
			return &a, tea.Quit

		case "?":
			a.showHelp = true
			return &a, nil

		case "1":
			a.detailFullScreen = false
			a.currentView = ViewMatrix

		case "2":
			a.detailFullScreen = false
			if a.currentView != ViewSummary {
				a.currentView = ViewSummary
				a.summaryView.SetData(a.records, a.matrixView.Mode())
			}

		case "r":
			a.status = "Refreshing..."
			cmds = append(cmds, a.fetchState())

		case "m":
			if a.currentView == ViewSummary {
				a.matrixView.CycleMode()
				a.summaryView.SetData(a.records, a.matrixView.Mode())
			}

		case "enter":
			if a.currentView == ViewMatrix && !a.detailFullScreen {
				if cell, ok := a.matrixView.SelectedCell(); ok {
					if !cell.Present {
						a.status = "Never attempted, nothing to show"
					} else {
						a.stderrView.SetLoading()
						a.detailFullScreen = true
						a.propagateSize()
						a.status = fmt.Sprintf("Loading %s @ %s...", cell.Target, cell.Nightly)
						cmds = append(cmds, a.fetchBuild(cell))
					}
				}
			}

		case "b":
			if a.currentView == ViewMatrix && !a.detailFullScreen {
				if cell, ok := a.matrixView.SelectedCell(); ok && cell.Present {
					if a.cfg.ServerURL == "" {
						a.status = "Reading a local database, no server to browse"
					} else {
						cmds = append(cmds, a.openBrowser(a.buildPageURL(cell)))
					}
				}
			}

		case "R":
			if a.currentView == ViewMatrix && !a.detailFullScreen {
				if nightly := a.matrixView.SelectedNightly(); nightly != "" {
					a.confirmDialog = confirm.New(
						"Re-trigger Nightly",
						fmt.Sprintf("Queue a fresh sweep of nightly %s across all targets?", nightly),
						"trigger-nightly", nightly,
					)
				}
			}

		case "T":
			if a.currentView == ViewMatrix && !a.detailFullScreen {
				if broken := a.brokenNightlies(); len(broken) > 0 {
					a.confirmDialog = confirm.New(
						"Re-trigger Broken Nightlies",
						fmt.Sprintf("Queue fresh sweeps for %d broken nightlies [%s]?", len(broken), a.matrixView.Mode()),
						"trigger-broken", broken,
					)
				} else {
					a.status = "No broken nightlies, nothing to re-trigger"
				}
			}
		}

	case ui.StateLoadedMsg:
		if msg.Err != nil {
			a.matrixView.SetError(msg.Err)
			a.status = fmt.Sprintf("Error: %v (showing last good data)", msg.Err)
		} else if err := a.matrixView.SetRecords(msg.Records); err != nil {
			a.status = fmt.Sprintf("Rejected update: %v", err)
		} else {
			a.records = msg.Records
			a.status = fmt.Sprintf("%d builds from %s", len(msg.Records), a.provider.Source())
			if a.currentView == ViewSummary {
				a.summaryView.SetData(a.records, a.matrixView.Mode())
			}
		}

	case ui.BuildLoadedMsg:
		if msg.Err != nil {
			a.detailFullScreen = false
			if errors.Is(msg.Err, api.ErrNotFound) {
				a.status = fmt.Sprintf("No build recorded for %s @ %s", msg.Target, msg.Nightly)
			} else {
				a.status = fmt.Sprintf("Error loading build: %v", msg.Err)
			}
		} else {
			a.stderrView.SetBuild(msg.Build, msg.Cached)
			a.status = fmt.Sprintf("%s @ %s [%s]", msg.Target, msg.Nightly, msg.Mode)
		}

	case ui.TriggeredMsg:
		switch {
		case msg.Err == nil:
			a.status = fmt.Sprintf("Sweep of %s queued", msg.Nightly)
		case errors.Is(msg.Err, api.ErrUnavailable):
			a.status = "Build queue is full, try again later"
		default:
			a.status = fmt.Sprintf("Error triggering %s: %v", msg.Nightly, msg.Err)
		}

	case ui.BulkTriggeredMsg:
		if msg.Err != nil {
			a.status = fmt.Sprintf("Queued %d/%d sweeps: %v", msg.Completed, msg.Total, msg.Err)
		} else {
			a.status = fmt.Sprintf("Queued %d sweeps", msg.Completed)
		}

	case ui.EventsConnectedMsg:
		if msg.Err != nil {
			a.eventsUp = false
			cmds = append(cmds, scheduleReconnect())
		} else {
			a.events = msg.Events
			a.eventsUp = true
			cmds = append(cmds, waitEvent(a.events))
		}

	case ui.EventMsg:
		if msg.Err != nil {
			a.eventsUp = false
			a.events = nil
			cmds = append(cmds, scheduleReconnect())
		} else {
			cmds = append(cmds, a.handleEvent(msg.Event)...)
			if a.events != nil {
				cmds = append(cmds, waitEvent(a.events))
			}
		}

	case reconnectEventsMsg:
		if a.client != nil && !a.eventsUp {
			cmds = append(cmds, a.connectEvents())
		}

	case ui.RefreshTickMsg:
		cmds = append(cmds, a.fetchState(), a.scheduleRefresh())

	case ui.StatusMsg:
		a.status = msg.Text
	}

	// Propagate to the active view. WindowSizeMsg is handled by
	// propagateSize with per-view dimensions.
	if _, isResize := msg.(tea.WindowSizeMsg); !isResize {
		if a.detailFullScreen {
			if keyMsg, ok := msg.(tea.KeyMsg); ok {
				isExit := keyMsg.String() == "esc" || keyMsg.String() == "backspace"
				if isExit {
					a.detailFullScreen = false
					a.propagateSize()
				} else {
					var cmd tea.Cmd
					a.stderrView, cmd = a.stderrView.Update(msg)
					cmds = append(cmds, cmd)
				}
			} else {
				var cmd tea.Cmd
				a.stderrView, cmd = a.stderrView.Update(msg)
				cmds = append(cmds, cmd)
			}
		} else {
			var cmd tea.Cmd
			switch a.currentView {
			case ViewMatrix:
				a.matrixView, cmd = a.matrixView.Update(msg)
			case ViewSummary:
				a.summaryView, cmd = a.summaryView.Update(msg)
			}
			cmds = append(cmds, cmd)
		}
	}

	return &a, tea.Batch(cmds...)
}

// handleEvent folds one server event into the local state. Build
// events patch the snapshot in place; sweep completions refetch since
// the sweep may have touched rows this client never saw.
func (a *App) handleEvent(ev api.Event) []tea.Cmd {
	switch ev.Event {
	case "build":
		var b model.BuildAttempt
		if err := json.Unmarshal(ev.Data, &b); err != nil || b.Validate() != nil {
			return nil
		}
		a.applyBuildEvent(b)
	case "sweep":
		var s struct {
			Nightly string     `json:"nightly"`
			Mode    model.Mode `json:"mode"`
		}
		if err := json.Unmarshal(ev.Data, &s); err == nil {
			a.status = fmt.Sprintf("Sweep of %s [%s] finished", s.Nightly, s.Mode)
		}
		return []tea.Cmd{a.fetchState()}
	case "hello":
		var h struct {
			Commit string `json:"commit"`
		}
		if err := json.Unmarshal(ev.Data, &h); err == nil && h.Commit != "" {
			a.status = fmt.Sprintf("Live updates connected (server %s)", h.Commit)
		}
	}
	return nil
}

func (a *App) applyBuildEvent(b model.BuildAttempt) {
	replaced := false
	for i, r := range a.records {
		if r.Nightly == b.Nightly && r.Target == b.Target && r.Mode == b.Mode {
			a.records[i] = b
			replaced = true
			break
		}
	}
	if !replaced {
		a.records = append(a.records, b)
	}

	// A fresh attempt invalidates whatever stderr we cached for the cell.
	_ = a.stderrs.Delete(b.Nightly, b.Target, b.Mode)

	if err := a.matrixView.SetRecords(a.records); err != nil {
		return
	}
	if a.currentView == ViewSummary {
		a.summaryView.SetData(a.records, a.matrixView.Mode())
	}
}

// brokenNightlies lists broken nightlies for the mode on screen.
func (a App) brokenNightlies() []string {
	mode := a.matrixView.Mode()
	var records []model.BuildAttempt
	for _, r := range a.records {
		if r.Mode == mode {
			records = append(records, r)
		}
	}
	return ops.FilterBroken(records)
}

func (a *App) propagateSize() {
	// header(1) + tabs(1) + status(1) = 3 lines of chrome,
	// plus the pane border top and bottom.
	contentH := a.height - 5
	if contentH < 1 {
		contentH = 1
	}
	innerW := a.width - 4

	a.matrixView, _ = a.matrixView.Update(tea.WindowSizeMsg{Width: innerW, Height: contentH})
	a.summaryView, _ = a.summaryView.Update(tea.WindowSizeMsg{Width: innerW, Height: contentH})
	a.stderrView, _ = a.stderrView.Update(tea.WindowSizeMsg{Width: innerW, Height: contentH})
}

// --- View ---

func (a App) View() string {
	header := RenderHeader(a.provider.Source(), a.eventsUp, a.width)
	tabs := a.renderTabs()

	contentH := a.height - 5
	if contentH < 1 {
		contentH = 1
	}
	style := ui.StylePaneFocused.Width(a.width - 2).Height(contentH)

	var content string
	switch {
	case a.showHelp:
		content = a.renderHelp()
	case a.confirmDialog.IsActive():
		content = a.confirmDialog.View()
	case a.detailFullScreen:
		content = style.Render(a.stderrView.View())
	case a.currentView == ViewSummary:
		content = style.Render(a.summaryView.View())
	default:
		content = style.Render(a.matrixView.View())
	}

	statusBar := RenderStatusBar(a.status, a.contextHints(), a.width)

	// Hard clamp so content never overflows the terminal.
	maxContentLines := a.height - 3
	if maxContentLines > 0 {
		lines := strings.Split(content, "\n")
		if len(lines) > maxContentLines {
			lines = lines[:maxContentLines]
			content = strings.Join(lines, "\n")
		}
	}

	return header + "\n" + tabs + "\n" + content + "\n" + statusBar
}

func (a App) renderTabs() string {
	tabStyle := lipgloss.NewStyle().Padding(0, 2)
	activeTab := tabStyle.Bold(true).Foreground(ui.ColorPrimary)
	inactiveTab := tabStyle.Foreground(ui.ColorMuted)

	matrixTab := inactiveTab.Render("[1] Matrix")
	summaryTab := inactiveTab.Render("[2] Summary")
	if a.currentView == ViewMatrix {
		matrixTab = activeTab.Render("[1] Matrix")
	} else {
		summaryTab = activeTab.Render("[2] Summary")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, matrixTab, summaryTab)
}

func (a App) contextHints() string {
	if a.detailFullScreen {
		if a.stderrView.IsSearching() {
			return "enter:confirm  esc:cancel"
		}
		return "/:search  n/N:match  j/k:scroll  g/G:top/bot  esc:back"
	}

	if a.currentView == ViewMatrix {
		if a.matrixView.IsSearching() {
			return "type to filter  enter:keep  esc:clear"
		}
		legend := fmt.Sprintf("%s=pass %s=fail %s=missing",
			ui.StatusIcon(model.StatusPass),
			ui.StatusIcon(model.StatusError),
			ui.MissingIcon(),
		)
		return legend + "  |  enter:stderr  b:browser  R:re-trigger  /:filter  ?:help"
	}

	return "m:mode  j/k:scroll  r:refresh  ?:help"
}

func (a App) renderHelp() string {
	contentH := a.height - 5
	if contentH < 1 {
		contentH = 1
	}

	bold := lipgloss.NewStyle().Bold(true)
	key := lipgloss.NewStyle().Foreground(ui.ColorPrimary).Bold(true).Width(14)
	desc := lipgloss.NewStyle().Foreground(lipgloss.Color("#D1D5DB"))

	row := func(k, d string) string {
		return "  " + key.Render(k) + desc.Render(d) + "\n"
	}

	var b strings.Builder
	b.WriteString("\n" + bold.Render("  Navigation") + "\n\n")
	b.WriteString(row("1 / 2", "Switch tab: Matrix, Summary"))
	b.WriteString(row("j/k/h/l", "Move the cursor"))
	b.WriteString(row("g / G", "First / last row"))
	b.WriteString(row("0 / $", "First / last column"))
	b.WriteString(row("enter", "Open build output for the cell"))
	b.WriteString(row("esc", "Back"))
	b.WriteString(row("q", "Quit"))

	b.WriteString("\n" + bold.Render("  Matrix") + "\n\n")
	b.WriteString(row("/", "Filter targets as you type"))
	b.WriteString(row("f", "Toggle failing-only"))
	b.WriteString(row("o", "Flip axes (targets <-> nightlies)"))
	b.WriteString(row("m", "Cycle build mode"))
	b.WriteString(row("b", "Open the cell's page in a browser"))
	b.WriteString(row("R", "Re-trigger the nightly under the cursor"))
	b.WriteString(row("T", "Re-trigger every broken nightly"))
	b.WriteString(row("r", "Refresh now"))

	b.WriteString("\n" + bold.Render("  Build Output") + "\n\n")
	b.WriteString(row("/", "Search in stderr"))
	b.WriteString(row("n / N", "Next / previous match"))
	b.WriteString(row("g / G", "Go to top / bottom"))
	b.WriteString(row("esc", "Close"))

	b.WriteString("\n" + bold.Render("  Summary") + "\n\n")
	b.WriteString(row("m", "Cycle build mode"))
	b.WriteString(row("j / k", "Scroll"))

	b.WriteString("\n" + lipgloss.NewStyle().Foreground(ui.ColorMuted).Render("  Press any key to close") + "\n")

	style := ui.StylePaneFocused.Width(a.width - 2).Height(contentH)
	return style.Render(b.String())
}
