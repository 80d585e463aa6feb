package evaluation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

// CheckFolds verifies that every job reports exactly the experiment's folds.
// A mismatch is a STRUCTURAL_MISMATCH error and aborts the whole run.
func CheckFolds[R any](experimentFolds []TrackList, jobs []Job[R]) error {
	expected := make(map[string]bool, len(experimentFolds))
	for _, f := range experimentFolds {
		if expected[f.Name] {
			return errors.ValidationError(fmt.Sprintf("fold %q is defined twice", f.Name))
		}
		expected[f.Name] = true
	}

	seenJobs := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		if seenJobs[job.ID] {
			return errors.ValidationError(fmt.Sprintf("job %q is defined twice", job.ID))
		}
		seenJobs[job.ID] = true

		var missing, extra []string
		for name := range expected {
			if _, ok := job.Results[name]; !ok {
				missing = append(missing, name)
			}
		}
		for name := range job.Results {
			if !expected[name] {
				extra = append(extra, name)
			}
		}
		if len(missing) == 0 && len(extra) == 0 {
			continue
		}

		sort.Strings(missing)
		sort.Strings(extra)
		err := errors.StructuralMismatchError(job.ID,
			fmt.Sprintf("job %s reports %d folds, experiment defines %d", job.ID, len(job.Results), len(expected)))
		if len(missing) > 0 {
			err = err.WithDetail("missing", strings.Join(missing, ","))
		}
		if len(extra) > 0 {
			err = err.WithDetail("unexpected", strings.Join(extra, ","))
		}
		return err
	}

	return nil
}

// CheckFoldResultsAreComplete selects the results of one fold that can be
// evaluated, in fold order.
//
// When the fold lists its tracks, each listed track without a result is
// logged and left out, and submissions for unlisted tracks are logged and
// skipped. When the fold lists no tracks, every submission is used in
// submission order. Repeated submissions for a track keep the first one.
// The length of the returned slice is the count of usable track results,
// which callers use as the fold's averaging denominator.
func CheckFoldResultsAreComplete[R any](log *logger.Logger, jobID string, fold TrackList, results []TrackRecord[R]) []TrackRecord[R] {
	byTrack := make(map[string]TrackRecord[R], len(results))
	order := make([]string, 0, len(results))
	for _, r := range results {
		if _, dup := byTrack[r.TrackID]; dup {
			log.Warn("Duplicate result ignored", "job", jobID, "fold", fold.Name, "track", r.TrackID)
			continue
		}
		byTrack[r.TrackID] = r
		order = append(order, r.TrackID)
	}

	if len(fold.Tracks) == 0 {
		usable := make([]TrackRecord[R], 0, len(order))
		for _, id := range order {
			usable = append(usable, byTrack[id])
		}
		return usable
	}

	listed := make(map[string]bool, len(fold.Tracks))
	usable := make([]TrackRecord[R], 0, len(fold.Tracks))
	missing := 0
	for _, id := range fold.Tracks {
		listed[id] = true
		r, ok := byTrack[id]
		if !ok {
			missing++
			log.Warn("Missing result for track, excluding it from the fold average",
				"job", jobID, "fold", fold.Name, "track", id)
			continue
		}
		usable = append(usable, r)
	}

	for _, id := range order {
		if !listed[id] {
			log.Warn("Result for track outside the fold ignored", "job", jobID, "fold", fold.Name, "track", id)
		}
	}

	if missing > 0 {
		log.Warn("Incomplete fold results",
			"job", jobID,
			"fold", fold.Name,
			"expected", len(fold.Tracks),
			"evaluated", len(usable),
		)
	}

	return usable
}
