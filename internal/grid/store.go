package grid

import (
	"fmt"

	"github.com/Noratrieb/does-it-build/internal/model"
)

// RecordStore owns the current record collection for one build mode.
// Partitioning happens upstream; the store never splits by mode itself.
// Not safe for concurrent use: the host event loop is the single owner
// and must serialize updates and renders.
type RecordStore struct {
	records []model.BuildAttempt
}

func NewRecordStore() *RecordStore {
	return &RecordStore{}
}

// Update replaces the collection wholesale. Every record is validated
// first; on the first malformed one the previous collection is kept and
// the error identifies the offender. Update never renders — callers
// invoke Render explicitly afterwards.
func (s *RecordStore) Update(records []model.BuildAttempt) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	s.records = records
	return nil
}

func (s *RecordStore) Records() []model.BuildAttempt {
	return s.records
}

func (s *RecordStore) Len() int {
	return len(s.records)
}
