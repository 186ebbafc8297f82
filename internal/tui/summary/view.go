// Package summary aggregates one mode's records into pass-rate
// statistics: how healthy the nightlies are and which targets break
// most.
package summary

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gonum.org/v1/gonum/stat"

	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/ops"
	"github.com/Noratrieb/does-it-build/internal/ui"
)

type TargetStat struct {
	Target     string
	ErrorCount int
	Total      int
	ErrorRate  float64
}

type Stats struct {
	Mode         model.Mode
	Total        int
	PassCount    int
	ErrorCount   int
	PassRate     float64
	NightlyCount int
	Broken       []string

	// Distribution of per-nightly pass rates, in percent.
	MeanRate   float64
	MedianRate float64
	P05Rate    float64

	TopFailing []TargetStat
}

// Compute builds the aggregate for one mode. Records of other modes are
// ignored; mixing modes would let a miri-std failure drag down a core
// pass rate.
func Compute(records []model.BuildAttempt, mode model.Mode) Stats {
	s := Stats{Mode: mode}

	nightlyPass := make(map[string]int)
	nightlyTotal := make(map[string]int)
	targetStats := make(map[string]*TargetStat)
	var modeRecords []model.BuildAttempt

	for _, r := range records {
		if r.Mode != mode {
			continue
		}
		modeRecords = append(modeRecords, r)
		s.Total++
		nightlyTotal[r.Nightly]++

		ts := targetStats[r.Target]
		if ts == nil {
			ts = &TargetStat{Target: r.Target}
			targetStats[r.Target] = ts
		}
		ts.Total++

		if r.Status == model.StatusPass {
			s.PassCount++
			nightlyPass[r.Nightly]++
		} else {
			s.ErrorCount++
			ts.ErrorCount++
		}
	}

	if s.Total == 0 {
		return s
	}
	s.PassRate = float64(s.PassCount) / float64(s.Total) * 100
	s.NightlyCount = len(nightlyTotal)
	s.Broken = ops.FilterBroken(modeRecords)

	rates := make([]float64, 0, len(nightlyTotal))
	for n, total := range nightlyTotal {
		rates = append(rates, float64(nightlyPass[n])/float64(total))
	}
	sort.Float64s(rates)
	s.MeanRate = stat.Mean(rates, nil) * 100
	s.MedianRate = stat.Quantile(0.5, stat.Empirical, rates, nil) * 100
	s.P05Rate = stat.Quantile(0.05, stat.Empirical, rates, nil) * 100

	for _, ts := range targetStats {
		if ts.ErrorCount == 0 {
			continue
		}
		ts.ErrorRate = float64(ts.ErrorCount) / float64(ts.Total) * 100
		s.TopFailing = append(s.TopFailing, *ts)
	}
	sort.Slice(s.TopFailing, func(i, j int) bool {
		if s.TopFailing[i].ErrorCount != s.TopFailing[j].ErrorCount {
			return s.TopFailing[i].ErrorCount > s.TopFailing[j].ErrorCount
		}
		return s.TopFailing[i].Target < s.TopFailing[j].Target
	})
	if len(s.TopFailing) > 8 {
		s.TopFailing = s.TopFailing[:8]
	}

	return s
}

type Model struct {
	stats    *Stats
	viewport viewport.Model
	width    int
	height   int
	loading  bool
	ready    bool
}

func New() Model {
	return Model{loading: true}
}

func (m *Model) SetData(records []model.BuildAttempt, mode model.Mode) {
	s := Compute(records, mode)
	m.stats = &s
	m.loading = false
	if m.ready {
		m.viewport.SetContent(m.render())
	}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-2)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 2
		}
		if m.stats != nil {
			m.viewport.SetContent(m.render())
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) render() string {
	if m.stats == nil {
		return "  No data"
	}
	s := m.stats
	bold := lipgloss.NewStyle().Bold(true)
	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)

	var b strings.Builder

	b.WriteString(bold.Render(fmt.Sprintf("  Overview [%s]", s.Mode)) + "\n\n")
	b.WriteString(fmt.Sprintf("  Attempts:  %s\n", bold.Render(fmt.Sprintf("%d", s.Total))))
	b.WriteString(fmt.Sprintf("  Passing:   %s (%.1f%%)\n",
		ui.StyleSuccess.Render(fmt.Sprintf("%d", s.PassCount)), s.PassRate))
	b.WriteString(fmt.Sprintf("  Erroring:  %s\n",
		ui.StyleFailure.Render(fmt.Sprintf("%d", s.ErrorCount))))
	b.WriteString(fmt.Sprintf("  Nightlies: %d tracked, %s broken\n\n",
		s.NightlyCount,
		ui.StyleWarning.Render(fmt.Sprintf("%d", len(s.Broken)))))

	if s.NightlyCount > 0 {
		b.WriteString(bold.Render("  Per-Nightly Pass Rate") + "\n\n")
		b.WriteString(fmt.Sprintf("  mean %.1f%%  /  median %.1f%%  /  p05 %.1f%%\n\n",
			s.MeanRate, s.MedianRate, s.P05Rate))
	}

	if len(s.Broken) > 0 {
		b.WriteString(bold.Render("  Broken Nightlies") + " " +
			muted.Render("(no target passed)") + "\n\n")
		shown := s.Broken
		if len(shown) > 10 {
			shown = shown[:10]
		}
		for _, n := range shown {
			b.WriteString("  " + ui.StyleWarning.Render(n) + "\n")
		}
		if len(s.Broken) > 10 {
			b.WriteString(muted.Render(fmt.Sprintf("  ... and %d more\n", len(s.Broken)-10)))
		}
		b.WriteString("\n")
	}

	if len(s.TopFailing) > 0 {
		b.WriteString(bold.Render("  Most Failing Targets") + "\n\n")

		barMaxLen := 20
		maxRate := 0.0
		for _, ts := range s.TopFailing {
			if ts.ErrorRate > maxRate {
				maxRate = ts.ErrorRate
			}
		}

		for i, ts := range s.TopFailing {
			name := ts.Target
			if len(name) > 36 {
				name = name[:33] + "..."
			}

			barLen := 1
			if maxRate > 0 {
				barLen = int(ts.ErrorRate / maxRate * float64(barMaxLen))
				if barLen < 1 {
					barLen = 1
				}
			}
			bar := strings.Repeat("█", barLen) + strings.Repeat("░", barMaxLen-barLen)

			b.WriteString(fmt.Sprintf("  %d. %s  %s  %s %s\n",
				i+1,
				ui.StyleFailure.Render(fmt.Sprintf("%5.1f%%", ts.ErrorRate)),
				ui.StyleFailure.Render(bar),
				muted.Render(fmt.Sprintf("%d/%d", ts.ErrorCount, ts.Total)),
				name))
		}
	}

	return b.String()
}

func (m Model) View() string {
	if m.loading {
		return "\n  Loading summary..."
	}

	muted := lipgloss.NewStyle().Foreground(ui.ColorMuted)
	title := "  " + lipgloss.NewStyle().Bold(true).Render("Summary") +
		"    " + muted.Render("m:switch mode  j/k:scroll")

	if m.ready {
		return title + "\n" + m.viewport.View()
	}
	return title + "\n  Initializing..."
}
