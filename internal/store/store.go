// Package store persists evaluation result sets so they can be listed and
// rendered after the run that produced them.
package store

import (
	"context"
	"sort"
	"time"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/security"
)

// Store is the interface for result set persistence.
type Store interface {
	// Save stores a snapshot, replacing any earlier one with the same run id.
	Save(ctx context.Context, snap *evaluation.Snapshot) error

	// Load returns the snapshot for a run, or a NOT_FOUND error.
	Load(ctx context.Context, runID string) (*evaluation.Snapshot, error)

	// List returns a summary of every stored run, newest first.
	List(ctx context.Context) ([]Summary, error)

	// Delete removes a run. Deleting an unknown run is not an error.
	Delete(ctx context.Context, runID string) error

	// Close releases the backend.
	Close() error
}

// Summary describes a stored run without its scores.
type Summary struct {
	RunID      string    `json:"run_id"`
	Experiment string    `json:"experiment"`
	Task       string    `json:"task"`
	CreatedAt  time.Time `json:"created_at"`
	Jobs       int       `json:"jobs"`
}

func summaryOf(s *evaluation.Snapshot) Summary {
	return Summary{
		RunID:      s.RunID,
		Experiment: s.Experiment,
		Task:       s.Task,
		CreatedAt:  s.CreatedAt,
		Jobs:       len(s.Jobs),
	}
}

// sortSummaries orders newest first, then by run id.
func sortSummaries(list []Summary) {
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].RunID < list[j].RunID
	})
}

func validateSnapshot(snap *evaluation.Snapshot) error {
	if snap == nil {
		return errors.ValidationError("snapshot is nil")
	}
	if snap.RunID == "" {
		return errors.ValidationError("snapshot has no run id")
	}
	if err := security.ValidateID("run id", snap.RunID); err != nil {
		return errors.ValidationError(err.Error())
	}
	return nil
}

func runNotFound(runID string) error {
	return errors.NotFoundError("run " + runID)
}
