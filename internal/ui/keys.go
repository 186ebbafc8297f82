package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Quit          key.Binding
	Help          key.Binding
	Enter         key.Binding
	Back          key.Binding
	Refresh       key.Binding
	Search        key.Binding
	NextMatch     key.Binding
	PrevMatch     key.Binding
	FailingOnly   key.Binding
	Flip          key.Binding
	Mode          key.Binding
	Browser       key.Binding
	Trigger       key.Binding
	TriggerBroken key.Binding
	Up            key.Binding
	Down          key.Binding
	Left          key.Binding
	Right         key.Binding
	PageUp        key.Binding
	PageDown      key.Binding
	Top           key.Binding
	Bottom        key.Binding
	FirstCol      key.Binding
	LastCol       key.Binding
}

var Keys = KeyMap{
	Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Enter:         key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open cell")),
	Back:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Refresh:       key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Search:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search targets")),
	NextMatch:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next match")),
	PrevMatch:     key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "prev match")),
	FailingOnly:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "failing only")),
	Flip:          key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "flip axes")),
	Mode:          key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "cycle mode")),
	Browser:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "open in browser")),
	Trigger:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "re-trigger nightly")),
	TriggerBroken: key.NewBinding(key.WithKeys("T"), key.WithHelp("T", "re-trigger broken")),
	Up:            key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("k/up", "up")),
	Down:          key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("j/down", "down")),
	Left:          key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("h/left", "left")),
	Right:         key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("l/right", "right")),
	PageUp:        key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
	PageDown:      key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
	Top:           key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "top")),
	Bottom:        key.NewBinding(key.WithKeys("G"), key.WithHelp("G", "bottom")),
	FirstCol:      key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "first column")),
	LastCol:       key.NewBinding(key.WithKeys("$"), key.WithHelp("$", "last column")),
}
