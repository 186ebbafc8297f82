package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Noratrieb/does-it-build/internal/model"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndQuery(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	attempt := model.BuildAttempt{
		Nightly: "2024-01-01",
		Target:  "x86_64-unknown-linux-gnu",
		Status:  model.StatusError,
		Stderr:  "error[E0463]: can't find crate for `core`",
		Mode:    model.ModeCore,
	}
	if err := s.Insert(ctx, attempt); err != nil {
		t.Fatalf("insert: %v", err)
	}

	state, err := s.BuildStatus(ctx)
	if err != nil {
		t.Fatalf("build status: %v", err)
	}
	if len(state) != 1 {
		t.Fatalf("got %d records, want 1", len(state))
	}
	if state[0].Stderr != "" {
		t.Error("list payload must not carry stderr")
	}
	if state[0].Status != model.StatusError || state[0].Mode != model.ModeCore {
		t.Errorf("got %+v", state[0])
	}

	full, err := s.BuildStatusFull(ctx, attempt.Nightly, attempt.Target, attempt.Mode)
	if err != nil {
		t.Fatalf("full lookup: %v", err)
	}
	if full.Stderr != attempt.Stderr {
		t.Errorf("stderr = %q, want %q", full.Stderr, attempt.Stderr)
	}
}

func TestBuildStatusFullNotFound(t *testing.T) {
	s := openTest(t)
	_, err := s.BuildStatusFull(context.Background(), "2024-01-01", "nope", model.ModeCore)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicateKeyFails(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	attempt := model.BuildAttempt{Nightly: "2024-01-01", Target: "arm", Status: model.StatusPass, Mode: model.ModeCore}
	if err := s.Insert(ctx, attempt); err != nil {
		t.Fatal(err)
	}
	if err := s.Insert(ctx, attempt); err == nil {
		t.Error("duplicate (nightly, target, mode) insert must fail")
	}

	// Same key under the other mode is a different attempt.
	attempt.Mode = model.ModeMiriStd
	if err := s.Insert(ctx, attempt); err != nil {
		t.Errorf("other mode insert: %v", err)
	}
}

func TestInsertRejectsMalformed(t *testing.T) {
	s := openTest(t)
	err := s.Insert(context.Background(), model.BuildAttempt{Target: "arm", Status: model.StatusPass, Mode: model.ModeCore})
	if !errors.Is(err, model.ErrMalformedRecord) {
		t.Errorf("error = %v, want ErrMalformedRecord", err)
	}
}

func TestFinishedNightlies(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	done, err := s.IsNightlyFinished(ctx, "2024-01-01", model.ModeCore)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("fresh store reports a finished nightly")
	}

	if err := s.FinishNightly(ctx, "2024-01-01", model.ModeCore); err != nil {
		t.Fatal(err)
	}
	if err := s.FinishNightly(ctx, "2024-01-01", model.ModeCore); err != nil {
		t.Errorf("finish must be idempotent: %v", err)
	}

	done, err = s.IsNightlyFinished(ctx, "2024-01-01", model.ModeCore)
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Error("nightly not reported finished")
	}

	// Finishing is per mode.
	done, err = s.IsNightlyFinished(ctx, "2024-01-01", model.ModeMiriStd)
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Error("miri-std inherited core's finished mark")
	}

	list, err := s.FinishedNightlies(ctx, model.ModeCore)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0] != "2024-01-01" {
		t.Errorf("finished = %v", list)
	}
}

func TestStatusCounts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	seed := []model.BuildAttempt{
		{Nightly: "2024-01-01", Target: "a", Status: model.StatusPass, Mode: model.ModeCore},
		{Nightly: "2024-01-01", Target: "b", Status: model.StatusError, Mode: model.ModeCore},
		{Nightly: "2024-01-01", Target: "c", Status: model.StatusError, Mode: model.ModeCore},
		{Nightly: "2024-01-01", Target: "a", Status: model.StatusPass, Mode: model.ModeMiriStd},
	}
	for _, b := range seed {
		if err := s.Insert(ctx, b); err != nil {
			t.Fatal(err)
		}
	}

	counts, err := s.StatusCounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]int)
	for _, c := range counts {
		got[string(c.Mode)+"/"+string(c.Status)] = c.Count
	}
	if got["core/pass"] != 1 || got["core/error"] != 2 || got["miri-std/pass"] != 1 {
		t.Errorf("counts = %v", got)
	}
}
