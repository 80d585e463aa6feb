package evaluation

import (
	"context"
	"fmt"

	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

// EvaluateFold scores every usable result of one job in one fold and
// summarises them.
//
// A missing ground-truth record or any other fatal task error aborts the
// fold. Recoverable task errors keep the score the task returned and are
// logged.
func EvaluateFold[R any](
	ctx context.Context,
	task Task[R],
	gt GroundTruth[R],
	log *logger.Logger,
	jobID string,
	fold TrackList,
	results []TrackRecord[R],
) (*FoldResult, error) {
	usable := CheckFoldResultsAreComplete(log, jobID, fold, results)

	scores := make([]TrackScore, 0, len(usable))
	for _, r := range usable {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.CodeTimeout, "fold evaluation cancelled", err)
		}

		truth, err := gt.Get(r.TrackID)
		if err != nil {
			return nil, fmt.Errorf("job %s fold %s: %w", jobID, fold.Name, err)
		}

		score, err := task.Evaluate(r.TrackID, r.Data, truth)
		if err != nil {
			if errors.IsFatal(err) {
				return nil, fmt.Errorf("job %s fold %s: %w", jobID, fold.Name, err)
			}
			log.WithJob(jobID).WithFold(fold.Name).WithTrack(r.TrackID).WithError(err).
				Warn("Track scored as failure")
		}
		if score.TrackID == "" {
			score.TrackID = r.TrackID
		}
		scores = append(scores, score)
	}

	if len(scores) == 0 {
		log.Warn("No results to evaluate in fold", "job", jobID, "fold", fold.Name)
	}

	expected := len(fold.Tracks)
	if expected == 0 {
		expected = len(scores)
	}

	return &FoldResult{
		Fold:      fold.Name,
		Tracks:    scores,
		Summary:   task.Summarize(scores),
		Expected:  expected,
		Evaluated: len(scores),
	}, nil
}
