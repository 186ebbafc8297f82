// Package ops holds multi-step operations the TUI runs against a
// provider, kept out of the event loop so they stay testable.
package ops

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Noratrieb/does-it-build/internal/api"
	"github.com/Noratrieb/does-it-build/internal/grid"
	"github.com/Noratrieb/does-it-build/internal/model"
)

// FilterBroken returns the nightlies with zero passing attempts, newest
// first. A nightly with no records at all is not listed.
func FilterBroken(records []model.BuildAttempt) []string {
	broken := grid.BrokenNightlies(records)
	var nightlies []string
	for n, b := range broken {
		if b {
			nightlies = append(nightlies, n)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(nightlies)))
	return nightlies
}

type Result struct {
	Completed int
	Failed    int
	Errors    []error
}

// BulkRetrigger posts one trigger per nightly, in order. The build
// queue is bounded, so a full queue ends the batch early: everything
// after it would fail the same way.
func BulkRetrigger(ctx context.Context, p api.Provider, nightlies []string, onProgress func(completed, total int)) (*Result, error) {
	result := &Result{}
	total := len(nightlies)

	for i, n := range nightlies {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		err := p.TriggerBuild(ctx, n)
		switch {
		case err == nil:
			result.Completed++
		case errors.Is(err, api.ErrUnavailable):
			result.Failed += total - i
			result.Errors = append(result.Errors, fmt.Errorf("nightly %s: %w, stopping with %d left", n, err, total-i-1))
			if onProgress != nil {
				onProgress(i+1, total)
			}
			return result, nil
		default:
			result.Failed++
			result.Errors = append(result.Errors, fmt.Errorf("nightly %s: %w", n, err))
		}

		if onProgress != nil {
			onProgress(i+1, total)
		}
	}

	return result, nil
}
