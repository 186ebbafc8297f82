package ops

import (
	"context"
	"errors"
	"testing"

	"github.com/Noratrieb/does-it-build/internal/api"
	"github.com/Noratrieb/does-it-build/internal/model"
)

type fakeProvider struct {
	triggered []string
	errs      map[string]error
}

func (f *fakeProvider) TargetState(context.Context) ([]model.BuildAttempt, error) { return nil, nil }
func (f *fakeProvider) Build(context.Context, string, string, model.Mode) (model.BuildAttempt, error) {
	return model.BuildAttempt{}, api.ErrNotFound
}
func (f *fakeProvider) Source() string { return "fake" }
func (f *fakeProvider) Close() error   { return nil }

func (f *fakeProvider) TriggerBuild(_ context.Context, nightly string) error {
	f.triggered = append(f.triggered, nightly)
	return f.errs[nightly]
}

func TestFilterBroken(t *testing.T) {
	records := []model.BuildAttempt{
		{Nightly: "2024-01-01", Target: "a", Status: model.StatusError, Mode: model.ModeCore},
		{Nightly: "2024-01-01", Target: "b", Status: model.StatusError, Mode: model.ModeCore},
		{Nightly: "2024-01-02", Target: "a", Status: model.StatusPass, Mode: model.ModeCore},
		{Nightly: "2024-01-02", Target: "b", Status: model.StatusError, Mode: model.ModeCore},
		{Nightly: "2024-01-03", Target: "a", Status: model.StatusError, Mode: model.ModeCore},
	}

	got := FilterBroken(records)
	want := []string{"2024-01-03", "2024-01-01"}
	if len(got) != len(want) {
		t.Fatalf("FilterBroken() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("FilterBroken()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFilterBrokenEmpty(t *testing.T) {
	if got := FilterBroken(nil); len(got) != 0 {
		t.Errorf("FilterBroken(nil) = %v, want empty", got)
	}
}

func TestBulkRetrigger(t *testing.T) {
	p := &fakeProvider{
		errs: map[string]error{"2024-01-02": errors.New("boom")},
	}

	var progress []int
	result, err := BulkRetrigger(context.Background(), p,
		[]string{"2024-01-03", "2024-01-02", "2024-01-01"},
		func(completed, total int) { progress = append(progress, completed) })
	if err != nil {
		t.Fatalf("BulkRetrigger: %v", err)
	}

	if result.Completed != 2 || result.Failed != 1 {
		t.Errorf("result = %d completed, %d failed, want 2/1", result.Completed, result.Failed)
	}
	if len(result.Errors) != 1 {
		t.Errorf("got %d errors, want 1", len(result.Errors))
	}
	if len(p.triggered) != 3 {
		t.Errorf("triggered %d nightlies, want 3", len(p.triggered))
	}
	if len(progress) != 3 || progress[2] != 3 {
		t.Errorf("progress callbacks = %v", progress)
	}
}

func TestBulkRetriggerStopsWhenQueueFull(t *testing.T) {
	p := &fakeProvider{
		errs: map[string]error{"2024-01-02": api.ErrUnavailable},
	}

	result, err := BulkRetrigger(context.Background(), p,
		[]string{"2024-01-03", "2024-01-02", "2024-01-01"}, nil)
	if err != nil {
		t.Fatalf("BulkRetrigger: %v", err)
	}

	if result.Completed != 1 || result.Failed != 2 {
		t.Errorf("result = %d completed, %d failed, want 1/2", result.Completed, result.Failed)
	}
	// The third nightly was never posted.
	if len(p.triggered) != 2 {
		t.Errorf("triggered %d nightlies, want 2", len(p.triggered))
	}
}

func TestBulkRetriggerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &fakeProvider{}
	result, err := BulkRetrigger(ctx, p, []string{"2024-01-01"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if result.Completed != 0 || len(p.triggered) != 0 {
		t.Errorf("cancelled run still triggered builds: %v", p.triggered)
	}
}
