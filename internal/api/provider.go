// Package api gives the TUI its build state, either from a running
// does-it-build server or straight from a local database file.
package api

import (
	"context"
	"errors"

	"github.com/Noratrieb/does-it-build/internal/model"
)

var (
	// ErrNotFound means the (nightly, target, mode) combination was
	// never attempted.
	ErrNotFound = errors.New("build not found")
	// ErrUnavailable means the server cannot take the request right
	// now: no builder attached, or the trigger queue is full.
	ErrUnavailable = errors.New("server unavailable")
)

// Provider supplies build state to the TUI.
type Provider interface {
	// TargetState returns every recorded attempt, without stderr.
	TargetState(ctx context.Context) ([]model.BuildAttempt, error)
	// Build returns one attempt including its stderr.
	Build(ctx context.Context, nightly, target string, mode model.Mode) (model.BuildAttempt, error)
	// TriggerBuild asks for a fresh sweep of a nightly.
	TriggerBuild(ctx context.Context, nightly string) error
	// Source describes where the data comes from, for the status bar.
	Source() string
	Close() error
}

var (
	_ Provider = (*Client)(nil)
	_ Provider = (*Local)(nil)
)
