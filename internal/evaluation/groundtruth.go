package evaluation

import (
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

// GroundTruth looks up the authoritative annotation for a track.
// Implementations must be safe for concurrent reads.
type GroundTruth[R any] interface {
	Get(trackID string) (R, error)
}

// MapGroundTruth is a read-only, in-memory ground-truth registry.
type MapGroundTruth[R any] struct {
	records map[string]R
}

// NewMapGroundTruth builds a registry from records. Later duplicates replace
// earlier ones.
func NewMapGroundTruth[R any](records []TrackRecord[R]) *MapGroundTruth[R] {
	m := make(map[string]R, len(records))
	for _, r := range records {
		m[r.TrackID] = r.Data
	}
	return &MapGroundTruth[R]{records: m}
}

// Get returns the record for trackID or a GROUND_TRUTH_NOT_FOUND error.
func (g *MapGroundTruth[R]) Get(trackID string) (R, error) {
	r, ok := g.records[trackID]
	if !ok {
		var zero R
		return zero, errors.GroundTruthNotFoundError(trackID)
	}
	return r, nil
}

// Len returns the number of tracks in the registry.
func (g *MapGroundTruth[R]) Len() int {
	return len(g.records)
}
