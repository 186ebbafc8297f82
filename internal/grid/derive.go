package grid

import (
	"sort"
	"strings"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// derived holds the transient products of one filtered pass. It lives
// for exactly one render.
type derived struct {
	nightlies    []string // newest first
	targets      []string // ascending
	errorTargets map[string]bool
	pivot        map[string]map[string]model.BuildAttempt // outer -> inner -> record
}

// derive makes the single filtered pass over the records. A record
// whose target does not contain search is skipped entirely. Records
// that pass contribute their axis values, mark their target as failing
// when they errored on a nightly that is not itself broken, and land in
// the pivot under the orientation's (outer, inner) key pair.
func derive(records []model.BuildAttempt, search string, broken map[string]bool, o Orientation) derived {
	d := derived{
		errorTargets: make(map[string]bool),
		pivot:        make(map[string]map[string]model.BuildAttempt),
	}
	nightlySet := make(map[string]bool)
	targetSet := make(map[string]bool)

	for _, r := range records {
		if !strings.Contains(r.Target, search) {
			continue
		}
		nightlySet[r.Nightly] = true
		targetSet[r.Target] = true
		if r.Status == model.StatusError && !broken[r.Nightly] {
			d.errorTargets[r.Target] = true
		}

		outer, inner := r.Target, r.Nightly
		if o == NightlyMajor {
			outer, inner = r.Nightly, r.Target
		}
		row := d.pivot[outer]
		if row == nil {
			row = make(map[string]model.BuildAttempt)
			d.pivot[outer] = row
		}
		row[inner] = r
	}

	d.nightlies = setToSlice(nightlySet)
	sort.Sort(sort.Reverse(sort.StringSlice(d.nightlies)))
	d.targets = setToSlice(targetSet)
	sort.Strings(d.targets)
	return d
}

func setToSlice(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	return out
}

// cellFor resolves the pivot at (outer, inner) into a presentation
// cell. Absent combinations yield the zero Cell.
func cellFor(pivot map[string]map[string]model.BuildAttempt, outer, inner string) Cell {
	r, ok := pivot[outer][inner]
	if !ok {
		return Cell{}
	}
	return Cell{
		Present: true,
		Status:  r.Status,
		Nightly: r.Nightly,
		Target:  r.Target,
		Mode:    r.Mode,
	}
}
