package stderrview

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Noratrieb/does-it-build/internal/model"
)

func key(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func errorBuild() model.BuildAttempt {
	return model.BuildAttempt{
		Nightly: "2024-01-01",
		Target:  "arm",
		Status:  model.StatusError,
		Stderr:  "error: first\nsome context\nerror: second",
		Mode:    model.ModeCore,
	}
}

func TestSetBuildShowsContent(t *testing.T) {
	m := New()

	// Simulate WindowSizeMsg (propagateSize)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})

	if !strings.Contains(m.View(), "Select a cell") {
		t.Error("view should show the placeholder before SetBuild")
	}

	m.SetLoading()
	if !strings.Contains(m.View(), "Loading build output") {
		t.Error("view should show loading after SetLoading")
	}

	m.SetBuild(errorBuild(), false)
	view := m.View()
	for _, want := range []string{"arm @ 2024-01-01 [core]", "error: first", "error: second"} {
		if !strings.Contains(view, want) {
			t.Errorf("view should contain %q.\nView:\n%s", want, view)
		}
	}
	if strings.Contains(view, "[cached]") {
		t.Error("fresh build should not be tagged [cached]")
	}
}

func TestCachedTag(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.SetBuild(errorBuild(), true)

	if !strings.Contains(m.View(), "[cached]") {
		t.Error("cached build should be tagged in the header")
	}
}

func TestEmptyStderrPlaceholder(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.SetBuild(model.BuildAttempt{
		Nightly: "2024-01-01", Target: "arm",
		Status: model.StatusPass, Mode: model.ModeCore,
	}, false)

	if !strings.Contains(m.View(), "(no output captured)") {
		t.Errorf("passing build with empty stderr should show the placeholder.\nView:\n%s", m.View())
	}
}

func TestSearchFindsMatches(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.SetBuild(errorBuild(), false)

	m, cmd := m.Update(key('/'))
	if cmd == nil {
		t.Error("expected non-nil cmd after pressing / (textinput.Blink)")
	}
	if !m.IsSearching() {
		t.Fatal("IsSearching() should return true after pressing /")
	}

	for _, r := range "error" {
		m, _ = m.Update(key(r))
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.IsSearching() {
		t.Error("enter should close the search input")
	}
	if len(m.matchLines) != 2 || m.matchLines[0] != 0 || m.matchLines[1] != 2 {
		t.Fatalf("matchLines = %v, want [0 2]", m.matchLines)
	}
	if !strings.Contains(m.View(), "[1/2 matches]") {
		t.Errorf("header should show the match counter.\nView:\n%s", m.View())
	}

	// n cycles forward and wraps; N goes back.
	m, _ = m.Update(key('n'))
	if !strings.Contains(m.View(), "[2/2 matches]") {
		t.Error("n should advance to the second match")
	}
	m, _ = m.Update(key('n'))
	if !strings.Contains(m.View(), "[1/2 matches]") {
		t.Error("n past the last match should wrap to the first")
	}
	m, _ = m.Update(key('N'))
	if !strings.Contains(m.View(), "[2/2 matches]") {
		t.Error("N should go back, wrapping to the last match")
	}
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.SetBuild(errorBuild(), false)

	m, _ = m.Update(key('/'))
	for _, r := range "ERROR" {
		m, _ = m.Update(key(r))
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.matchLines) != 2 {
		t.Errorf("matchLines = %v, stderr search should ignore case", m.matchLines)
	}
}

func TestSearchNoMatches(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.SetBuild(errorBuild(), false)

	m, _ = m.Update(key('/'))
	for _, r := range "nomatch" {
		m, _ = m.Update(key(r))
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if !strings.Contains(m.View(), "[no matches]") {
		t.Errorf("header should say no matches.\nView:\n%s", m.View())
	}
}

func TestSetBuildResetsSearch(t *testing.T) {
	m := New()
	m, _ = m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	m.SetBuild(errorBuild(), false)

	m, _ = m.Update(key('/'))
	for _, r := range "error" {
		m, _ = m.Update(key(r))
	}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if len(m.matchLines) != 2 {
		t.Fatalf("matchLines = %v, want 2 matches", m.matchLines)
	}

	// Loading a different build drops the stale matches.
	m.SetBuild(model.BuildAttempt{
		Nightly: "2024-01-02", Target: "x86_64",
		Status: model.StatusPass, Stderr: "clean", Mode: model.ModeCore,
	}, false)
	if len(m.matchLines) != 0 {
		t.Errorf("matchLines = %v after SetBuild, want none", m.matchLines)
	}
	if strings.Contains(m.View(), "matches]") {
		t.Error("match counter should disappear after loading a new build")
	}
}
