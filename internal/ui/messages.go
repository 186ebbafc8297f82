package ui

import (
	"github.com/Noratrieb/does-it-build/internal/api"
	"github.com/Noratrieb/does-it-build/internal/model"
)

// Data fetched messages
type StateLoadedMsg struct {
	Records []model.BuildAttempt
	Err     error
}

type BuildLoadedMsg struct {
	Nightly string
	Target  string
	Mode    model.Mode
	Build   model.BuildAttempt
	Cached  bool
	Err     error
}

// Action result messages
type TriggeredMsg struct {
	Nightly string
	Err     error
}

type BulkTriggeredMsg struct {
	Completed int
	Failed    int
	Total     int
	Err       error
}

// Live event stream messages
type EventsConnectedMsg struct {
	Events *api.Events
	Err    error
}

type EventMsg struct {
	Event api.Event
	Err   error
}

type RefreshTickMsg struct{}

type StatusMsg struct {
	Text string
}
