package grid

import (
	"testing"

	"github.com/Noratrieb/does-it-build/internal/model"
)

func rec(nightly, target string, status model.Status) model.BuildAttempt {
	return model.BuildAttempt{Nightly: nightly, Target: target, Status: status, Mode: model.ModeCore}
}

func TestBrokenNightlies(t *testing.T) {
	records := []model.BuildAttempt{
		rec("2024-01-01", "x86_64", model.StatusPass),
		rec("2024-01-01", "arm", model.StatusError),
		rec("2024-02-01", "x86_64", model.StatusError),
	}

	broken := BrokenNightlies(records)

	if broken["2024-01-01"] {
		t.Error("2024-01-01 has a pass, must not be broken")
	}
	if !broken["2024-02-01"] {
		t.Error("2024-02-01 has no pass anywhere, must be broken")
	}
	if _, ok := broken["2024-03-01"]; ok {
		t.Error("nightly without records must be absent from the map, not false")
	}
}

func TestBrokenNightliesOrderIndependent(t *testing.T) {
	// A pass sighted before, between and after errors of the same
	// nightly must always pin it healthy.
	orders := [][]model.BuildAttempt{
		{
			rec("2024-01-01", "a", model.StatusPass),
			rec("2024-01-01", "b", model.StatusError),
			rec("2024-01-01", "c", model.StatusError),
		},
		{
			rec("2024-01-01", "b", model.StatusError),
			rec("2024-01-01", "a", model.StatusPass),
			rec("2024-01-01", "c", model.StatusError),
		},
		{
			rec("2024-01-01", "b", model.StatusError),
			rec("2024-01-01", "c", model.StatusError),
			rec("2024-01-01", "a", model.StatusPass),
		},
	}
	for i, records := range orders {
		broken := BrokenNightlies(records)
		if broken["2024-01-01"] {
			t.Errorf("order %d: nightly with a pass classified broken", i)
		}
	}
}

func TestBrokenNightliesAllFailing(t *testing.T) {
	records := []model.BuildAttempt{
		rec("2024-01-01", "a", model.StatusError),
		rec("2024-01-01", "b", model.StatusError),
	}
	broken := BrokenNightlies(records)
	if !broken["2024-01-01"] {
		t.Error("nightly with only errors must be broken")
	}
}
