// Package tempo scores two-tempo estimates against annotated tempi and
// their relative salience.
package tempo

import (
	"fmt"
	"math"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

// TaskName identifies the tempo task.
const TaskName = "tempo"

// Tolerance is the relative error allowed on each tempo.
const Tolerance = 0.08

// Metric names.
const (
	MetricPScore     evaluation.Metric = "TEMPO_EXTRACTION_P_SCORE"
	MetricOneCorrect evaluation.Metric = "TEMPO_EXTRACTION_ONE_CORRECT"
	MetricTwoCorrect evaluation.Metric = "TEMPO_EXTRACTION_TWO_CORRECT"
)

var metrics = []evaluation.Metric{MetricPScore, MetricOneCorrect, MetricTwoCorrect}

// Tempo holds two tempi in BPM. Salience is the relative strength of T1 and
// is only read from ground truth.
type Tempo struct {
	T1       float64 `json:"t1"`
	T2       float64 `json:"t2"`
	Salience float64 `json:"salience"`
}

// Evaluator implements evaluation.Task for tempo estimates.
type Evaluator struct{}

// NewEvaluator returns a tempo evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Name implements evaluation.Task.
func (e *Evaluator) Name() string { return TaskName }

// Metrics implements evaluation.Task.
func (e *Evaluator) Metrics() []evaluation.Metric {
	return append([]evaluation.Metric(nil), metrics...)
}

// SummaryMetrics implements evaluation.Task.
func (e *Evaluator) SummaryMetrics() []evaluation.Metric {
	return e.Metrics()
}

// Evaluate matches each ground-truth tempo against either system tempo.
func (e *Evaluator) Evaluate(trackID string, result, groundTruth Tempo) (evaluation.TrackScore, error) {
	if groundTruth.T1 <= 0 || groundTruth.T2 <= 0 {
		return evaluation.TrackScore{}, errors.InvalidGroundTruthError(trackID,
			fmt.Sprintf("ground truth tempi for %s must be positive, got %v and %v", trackID, groundTruth.T1, groundTruth.T2))
	}
	if groundTruth.Salience < 0 || groundTruth.Salience > 1 {
		return evaluation.TrackScore{}, errors.InvalidGroundTruthError(trackID,
			fmt.Sprintf("ground truth salience for %s out of range: %v", trackID, groundTruth.Salience))
	}

	t1 := matches(groundTruth.T1, result)
	t2 := matches(groundTruth.T2, result)

	var one, two float64
	if t1 || t2 {
		one = 1
	}
	if t1 && t2 {
		two = 1
	}

	return evaluation.TrackScore{
		TrackID: trackID,
		Metrics: evaluation.Record{
			MetricPScore:     groundTruth.Salience*indicator(t1) + (1-groundTruth.Salience)*indicator(t2),
			MetricOneCorrect: one,
			MetricTwoCorrect: two,
		},
		Weight: 1,
	}, nil
}

// matches reports whether either system tempo is within tolerance of gt.
func matches(gt float64, sys Tempo) bool {
	limit := gt * Tolerance
	return math.Abs(gt-sys.T1) < limit || math.Abs(gt-sys.T2) < limit
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Summarize implements evaluation.Task.
func (e *Evaluator) Summarize(scores []evaluation.TrackScore) evaluation.Record {
	return evaluation.Mean(scores, metrics)
}
