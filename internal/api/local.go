package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/Noratrieb/does-it-build/internal/model"
	"github.com/Noratrieb/does-it-build/internal/store"
)

// Local reads build state straight from the sqlite database, for
// running the TUI on the host the daemon writes to.
type Local struct {
	st   *store.Store
	path string
}

func OpenLocal(path string) (*Local, error) {
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open local database: %w", err)
	}
	return &Local{st: st, path: path}, nil
}

func (l *Local) Source() string {
	return "sqlite:" + l.path
}

func (l *Local) Close() error {
	return l.st.Close()
}

func (l *Local) TargetState(ctx context.Context) ([]model.BuildAttempt, error) {
	return l.st.BuildStatus(ctx)
}

func (l *Local) Build(ctx context.Context, nightly, target string, mode model.Mode) (model.BuildAttempt, error) {
	b, err := l.st.BuildStatusFull(ctx, nightly, target, mode)
	if errors.Is(err, store.ErrNotFound) {
		return model.BuildAttempt{}, fmt.Errorf("%w: %s %s %s", ErrNotFound, nightly, target, mode)
	}
	return b, err
}

// TriggerBuild needs a running builder; a plain database file has none.
func (l *Local) TriggerBuild(ctx context.Context, nightly string) error {
	return fmt.Errorf("%w: triggering builds needs a server connection", ErrUnavailable)
}
