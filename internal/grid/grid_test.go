package grid

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// The dataset most tests share: x86_64 passes on 2024-01-01 and errors
// on 2024-02-01 (which is broken, nothing passes there), arm errors on
// the healthy 2024-01-01.
func scenarioStore(t *testing.T) *RecordStore {
	t.Helper()
	s := NewRecordStore()
	err := s.Update([]model.BuildAttempt{
		rec("2024-01-01", "x86_64", model.StatusPass),
		rec("2024-01-01", "arm", model.StatusError),
		rec("2024-02-01", "x86_64", model.StatusError),
	})
	if err != nil {
		t.Fatalf("seeding store: %v", err)
	}
	return s
}

func rowLabels(g Grid) []string {
	labels := make([]string, 0, len(g.Rows))
	for _, r := range g.Rows {
		labels = append(labels, r.Label)
	}
	return labels
}

func TestUpdateRejectsMalformedBatch(t *testing.T) {
	s := scenarioStore(t)
	before := s.Len()

	err := s.Update([]model.BuildAttempt{
		rec("2024-03-01", "x86_64", model.StatusPass),
		{Nightly: "2024-03-01", Target: "", Status: model.StatusPass, Mode: model.ModeCore},
	})
	if err == nil {
		t.Fatal("batch with a malformed record must be rejected")
	}
	if !errors.Is(err, model.ErrMalformedRecord) {
		t.Errorf("error %v is not ErrMalformedRecord", err)
	}
	if s.Len() != before {
		t.Errorf("store changed on rejected update: %d records, want %d", s.Len(), before)
	}
	g := Render(s, FilterState{}, TargetMajor)
	if want := []string{"arm", "x86_64"}; !reflect.DeepEqual(rowLabels(g), want) {
		t.Errorf("rows after rejected update = %v, want %v", rowLabels(g), want)
	}
}

func TestErrorTargetsExcludeBrokenNightlies(t *testing.T) {
	s := scenarioStore(t)
	broken := BrokenNightlies(s.Records())
	d := derive(s.Records(), "", broken, TargetMajor)

	// arm errored on the healthy 2024-01-01: failing. x86_64's only
	// error is on the broken 2024-02-01: not failing.
	if !d.errorTargets["arm"] {
		t.Error("arm must be in the error-target set")
	}
	if d.errorTargets["x86_64"] {
		t.Error("x86_64 errors only on a broken nightly, must not count")
	}
}

func TestAxisOrders(t *testing.T) {
	s := NewRecordStore()
	err := s.Update([]model.BuildAttempt{
		rec("2024-01-01", "zed", model.StatusPass),
		rec("2024-02-01", "arm", model.StatusPass),
		rec("2023-12-01", "x86_64", model.StatusPass),
	})
	if err != nil {
		t.Fatal(err)
	}

	g := Render(s, FilterState{}, TargetMajor)
	wantHeader := []string{"target", "2024-02-01", "2024-01-01", "2023-12-01"}
	if !reflect.DeepEqual(g.Header, wantHeader) {
		t.Errorf("target-major header = %v, want %v", g.Header, wantHeader)
	}
	if want := []string{"arm", "x86_64", "zed"}; !reflect.DeepEqual(rowLabels(g), want) {
		t.Errorf("target rows = %v, want %v", rowLabels(g), want)
	}

	g = Render(s, FilterState{}, NightlyMajor)
	wantHeader = []string{"nightly", "arm", "x86_64", "zed"}
	if !reflect.DeepEqual(g.Header, wantHeader) {
		t.Errorf("nightly-major header = %v, want %v", g.Header, wantHeader)
	}
	if want := []string{"2024-02-01", "2024-01-01", "2023-12-01"}; !reflect.DeepEqual(rowLabels(g), want) {
		t.Errorf("nightly rows = %v, want %v", rowLabels(g), want)
	}
}

func TestFailingOnlyElisionAsymmetry(t *testing.T) {
	s := scenarioStore(t)
	filter := FilterState{FailingOnly: true}

	// By target: only the arm row survives, but the header still lists
	// both nightlies.
	tm := Render(s, filter, TargetMajor)
	if want := []string{"arm"}; !reflect.DeepEqual(rowLabels(tm), want) {
		t.Errorf("target-major rows = %v, want %v", rowLabels(tm), want)
	}
	wantHeader := []string{"target", "2024-02-01", "2024-01-01"}
	if !reflect.DeepEqual(tm.Header, wantHeader) {
		t.Errorf("target-major header = %v, want %v (columns are never elided)", tm.Header, wantHeader)
	}
	if len(tm.Rows[0].Cells) != 2 {
		t.Fatalf("arm row has %d cells, want 2", len(tm.Rows[0].Cells))
	}
	if tm.Rows[0].Cells[0].Present {
		t.Error("arm on 2024-02-01 must be missing")
	}
	if c := tm.Rows[0].Cells[1]; !c.Present || c.Status != model.StatusError {
		t.Errorf("arm on 2024-01-01 = %+v, want present error", c)
	}

	// By nightly: both nightly rows survive, only the arm column does.
	nm := Render(s, filter, NightlyMajor)
	if want := []string{"2024-02-01", "2024-01-01"}; !reflect.DeepEqual(rowLabels(nm), want) {
		t.Errorf("nightly-major rows = %v, want %v (rows are never elided)", rowLabels(nm), want)
	}
	if want := []string{"nightly", "arm"}; !reflect.DeepEqual(nm.Header, want) {
		t.Errorf("nightly-major header = %v, want %v", nm.Header, want)
	}
	for _, row := range nm.Rows {
		if len(row.Cells) != 1 {
			t.Errorf("row %s has %d cells, want 1 (x86_64 column elided)", row.Label, len(row.Cells))
		}
	}
}

func TestSearchFiltersBothAxes(t *testing.T) {
	s := NewRecordStore()
	err := s.Update([]model.BuildAttempt{
		rec("2024-01-01", "x86_64-unknown-linux-gnu", model.StatusPass),
		rec("2024-01-01", "aarch64-apple-darwin", model.StatusPass),
		rec("2024-02-01", "aarch64-apple-darwin", model.StatusPass),
	})
	if err != nil {
		t.Fatal(err)
	}

	g := Render(s, FilterState{Search: "linux"}, TargetMajor)
	if want := []string{"x86_64-unknown-linux-gnu"}; !reflect.DeepEqual(rowLabels(g), want) {
		t.Errorf("rows = %v, want %v", rowLabels(g), want)
	}
	// 2024-02-01 only has a non-matching target, so the nightly axis
	// shrinks with it.
	if want := []string{"target", "2024-01-01"}; !reflect.DeepEqual(g.Header, want) {
		t.Errorf("header = %v, want %v", g.Header, want)
	}

	// Search is case-sensitive.
	g = Render(s, FilterState{Search: "Linux"}, TargetMajor)
	if len(g.Rows) != 0 {
		t.Errorf("case-sensitive search matched %v", rowLabels(g))
	}
}

func TestBrokenClassificationIgnoresSearch(t *testing.T) {
	// alpha carries the only pass for the nightly. A search hiding
	// alpha must not flip the nightly to broken, so beta's error still
	// makes it a failing target.
	s := NewRecordStore()
	err := s.Update([]model.BuildAttempt{
		rec("2024-01-01", "alpha", model.StatusPass),
		rec("2024-01-01", "beta", model.StatusError),
	})
	if err != nil {
		t.Fatal(err)
	}

	g := Render(s, FilterState{Search: "beta", FailingOnly: true}, TargetMajor)
	if want := []string{"beta"}; !reflect.DeepEqual(rowLabels(g), want) {
		t.Errorf("rows = %v, want %v", rowLabels(g), want)
	}
}

func TestRenderIdempotent(t *testing.T) {
	s := scenarioStore(t)
	for _, o := range []Orientation{TargetMajor, NightlyMajor} {
		for _, filter := range []FilterState{
			{},
			{Search: "x86"},
			{FailingOnly: true},
			{Search: "arm", FailingOnly: true},
		} {
			first := Render(s, filter, o)
			second := Render(s, filter, o)
			if !reflect.DeepEqual(first, second) {
				t.Errorf("%s %+v: two renders differ", o, filter)
			}
		}
	}
}

func TestOrientationDuality(t *testing.T) {
	s := NewRecordStore()
	err := s.Update([]model.BuildAttempt{
		rec("2024-01-01", "x86_64", model.StatusPass),
		rec("2024-01-01", "arm", model.StatusError),
		rec("2024-02-01", "x86_64", model.StatusError),
		rec("2024-03-01", "riscv64", model.StatusPass),
	})
	if err != nil {
		t.Fatal(err)
	}

	type pair struct{ nightly, target string }
	present := func(o Orientation) map[pair]bool {
		set := make(map[pair]bool)
		g := Render(s, FilterState{}, o)
		for _, row := range g.Rows {
			for _, c := range row.Cells {
				if c.Present {
					set[pair{c.Nightly, c.Target}] = true
				}
			}
		}
		return set
	}

	tm, nm := present(TargetMajor), present(NightlyMajor)
	if !reflect.DeepEqual(tm, nm) {
		t.Errorf("present cell sets differ between orientations:\n  target-major: %v\n  nightly-major: %v", tm, nm)
	}
	if len(tm) != 4 {
		t.Errorf("present cells = %d, want 4", len(tm))
	}
}

func TestCellLocatorEncoding(t *testing.T) {
	c := Cell{
		Present: true,
		Status:  model.StatusPass,
		Nightly: "2024-01-01",
		Target:  "thumbv8m.main-none-eabi",
		Mode:    model.ModeMiriStd,
	}
	want := "nightly=2024-01-01&target=thumbv8m.main-none-eabi&mode=miri-std"
	if got := c.Locator(); got != want {
		t.Errorf("locator = %q, want %q", got, want)
	}

	c.Target = "odd target&x=1"
	want = "nightly=2024-01-01&target=odd+target%26x%3D1&mode=miri-std"
	if got := c.Locator(); got != want {
		t.Errorf("locator = %q, want %q", got, want)
	}

	if got := (Cell{}).Locator(); got != "" {
		t.Errorf("missing cell locator = %q, want empty", got)
	}
}

func TestEmptyStore(t *testing.T) {
	s := NewRecordStore()
	g := Render(s, FilterState{}, TargetMajor)
	if !reflect.DeepEqual(g.Header, []string{"target"}) {
		t.Errorf("header = %v", g.Header)
	}
	if len(g.Rows) != 0 {
		t.Errorf("rows = %d, want 0", len(g.Rows))
	}

	g = Render(s, FilterState{Search: "x", FailingOnly: true}, NightlyMajor)
	if !reflect.DeepEqual(g.Header, []string{"nightly"}) {
		t.Errorf("header = %v", g.Header)
	}
}

func TestDuplicateKeyLastWins(t *testing.T) {
	// The provider guarantees key uniqueness; if it ever double-sends,
	// the later record shadows the earlier one in the pivot.
	s := NewRecordStore()
	err := s.Update([]model.BuildAttempt{
		rec("2024-01-01", "arm", model.StatusError),
		rec("2024-01-01", "arm", model.StatusPass),
	})
	if err != nil {
		t.Fatal(err)
	}
	g := Render(s, FilterState{}, TargetMajor)
	if c := g.Rows[0].Cells[0]; c.Status != model.StatusPass {
		t.Errorf("cell status = %s, want the later record's pass", c.Status)
	}
}
