package grid

// projectNightlyMajor builds the by-nightly view: header is "nightly"
// followed by the target axis, one row per nightly, newest first.
// FailingOnly elides on the opposite side from the by-target view:
// non-failing targets vanish from the header and from every row, while
// nightly rows are never dropped.
func projectNightlyMajor(d derived, failingOnly bool) Grid {
	targets := d.targets
	if failingOnly {
		kept := make([]string, 0, len(targets))
		for _, t := range targets {
			if d.errorTargets[t] {
				kept = append(kept, t)
			}
		}
		targets = kept
	}

	header := make([]string, 0, len(targets)+1)
	header = append(header, "nightly")
	header = append(header, targets...)

	rows := make([]Row, 0, len(d.nightlies))
	for _, nightly := range d.nightlies {
		cells := make([]Cell, 0, len(targets))
		for _, target := range targets {
			cells = append(cells, cellFor(d.pivot, nightly, target))
		}
		rows = append(rows, Row{Label: nightly, Cells: cells})
	}

	return Grid{Orientation: NightlyMajor, Header: header, Rows: rows}
}
