package grid

// projectTargetMajor builds the by-target view: header is "target"
// followed by every nightly in the filtered axis, one row per target in
// ascending order. FailingOnly drops the rows of targets that never
// errored on a healthy nightly; the column set stays complete no matter
// what.
func projectTargetMajor(d derived, failingOnly bool) Grid {
	header := make([]string, 0, len(d.nightlies)+1)
	header = append(header, "target")
	header = append(header, d.nightlies...)

	rows := make([]Row, 0, len(d.targets))
	for _, target := range d.targets {
		if failingOnly && !d.errorTargets[target] {
			continue
		}
		cells := make([]Cell, 0, len(d.nightlies))
		for _, nightly := range d.nightlies {
			cells = append(cells, cellFor(d.pivot, target, nightly))
		}
		rows = append(rows, Row{Label: target, Cells: cells})
	}

	return Grid{Orientation: TargetMajor, Header: header, Rows: rows}
}
