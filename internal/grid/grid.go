// Package grid derives the build matrix views from a flat collection of
// build attempts: which nightlies are broken, which targets fail, and
// two complementary table orientations over the same data. Derivation
// is pure and runs from scratch on every render; nothing is cached
// across calls.
package grid

import (
	"net/url"

	"github.com/Noratrieb/does-it-build/internal/model"
)

type Orientation string

const (
	// TargetMajor shows one row per target, nightlies as columns.
	TargetMajor Orientation = "targets"
	// NightlyMajor shows one row per nightly, targets as columns.
	NightlyMajor Orientation = "nightlies"
)

func (o Orientation) Valid() bool {
	return o == TargetMajor || o == NightlyMajor
}

func (o Orientation) Flip() Orientation {
	if o == TargetMajor {
		return NightlyMajor
	}
	return TargetMajor
}

// FilterState holds the live view filters. Search narrows by target
// substring, case-sensitive; empty matches everything. FailingOnly
// elides rows or columns depending on orientation and never changes the
// derived sets themselves.
type FilterState struct {
	Search      string
	FailingOnly bool
}

// Cell is one (row, column) intersection of a rendered grid. A missing
// combination has Present == false and carries no locator.
type Cell struct {
	Present bool
	Status  model.Status
	Nightly string
	Target  string
	Mode    model.Mode
}

// Locator returns the query string addressing this cell's detail view.
// Each component is escaped independently.
func (c Cell) Locator() string {
	if !c.Present {
		return ""
	}
	return "nightly=" + url.QueryEscape(c.Nightly) +
		"&target=" + url.QueryEscape(c.Target) +
		"&mode=" + url.QueryEscape(string(c.Mode))
}

type Row struct {
	Label string
	Cells []Cell
}

// Grid is one presentation-ready projection. Header[0] names the row
// axis; the remaining header entries label the columns in order.
type Grid struct {
	Orientation Orientation
	Header      []string
	Rows        []Row
}

// Render runs the full pipeline on the store's current records:
// broken-nightly classification over the unfiltered collection, one
// search-filtered pass building the axes, the error-target set and the
// pivot, then the orientation's projection with its elision rule.
func Render(store *RecordStore, filter FilterState, o Orientation) Grid {
	records := store.Records()
	broken := BrokenNightlies(records)
	d := derive(records, filter.Search, broken, o)
	if o == NightlyMajor {
		return projectNightlyMajor(d, filter.FailingOnly)
	}
	return projectTargetMajor(d, filter.FailingOnly)
}
