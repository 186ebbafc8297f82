package grid

import "github.com/Noratrieb/does-it-build/internal/model"

// BrokenNightlies reports, per nightly, whether it has zero passing
// attempts across all targets. Always computed over the unfiltered
// collection so a search can never make a nightly look broken. The
// reduction is an OR of passes: a nightly defaults to broken when first
// seen and a single pass pins it healthy for good, so the result does
// not depend on record order. Nightlies with no records have no entry.
func BrokenNightlies(records []model.BuildAttempt) map[string]bool {
	broken := make(map[string]bool, 64)
	for _, r := range records {
		if _, seen := broken[r.Nightly]; !seen {
			broken[r.Nightly] = true
		}
		if r.Status == model.StatusPass {
			broken[r.Nightly] = false
		}
	}
	return broken
}
