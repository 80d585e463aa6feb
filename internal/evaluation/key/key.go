// Package key scores musical key detection against ground truth, giving
// partial credit for near misses on the circle of fifths.
package key

import (
	"fmt"
	"strings"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

// TaskName identifies the key detection task.
const TaskName = "key"

// Modes.
const (
	Major = "major"
	Minor = "minor"
)

// Metric names.
const (
	MetricWeightedScore     evaluation.Metric = "KEY_DETECTION_WEIGHTED_SCORE"
	MetricCorrect           evaluation.Metric = "KEY_DETECTION_CORRECT"
	MetricPerfectFifthError evaluation.Metric = "KEY_DETECTION_PERFECT_FIFTH_ERROR"
	MetricRelativeError     evaluation.Metric = "KEY_DETECTION_RELATIVE_ERROR"
	MetricParallelError     evaluation.Metric = "KEY_DETECTION_PARALLEL_ERROR"
	MetricError             evaluation.Metric = "KEY_DETECTION_ERROR"
)

var metrics = []evaluation.Metric{
	MetricWeightedScore,
	MetricCorrect,
	MetricPerfectFifthError,
	MetricRelativeError,
	MetricParallelError,
	MetricError,
}

// Scores for each outcome.
const (
	ScoreCorrect      = 1.0
	ScorePerfectFifth = 0.5
	ScoreRelative     = 0.3
	ScoreParallel     = 0.2
	ScoreError        = 0.0
)

// Outcome classifies a detected key against the ground truth.
type Outcome int

const (
	OutcomeError Outcome = iota
	OutcomeCorrect
	OutcomePerfectFifth
	OutcomeRelative
	OutcomeParallel
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCorrect:
		return "correct"
	case OutcomePerfectFifth:
		return "perfect fifth"
	case OutcomeRelative:
		return "relative"
	case OutcomeParallel:
		return "parallel"
	default:
		return "error"
	}
}

// Score returns the weighted score of the outcome.
func (o Outcome) Score() float64 {
	switch o {
	case OutcomeCorrect:
		return ScoreCorrect
	case OutcomePerfectFifth:
		return ScorePerfectFifth
	case OutcomeRelative:
		return ScoreRelative
	case OutcomeParallel:
		return ScoreParallel
	default:
		return ScoreError
	}
}

// Key is a tonic and a mode, e.g. {"F#", "minor"}.
type Key struct {
	Tonic string `json:"tonic"`
	Mode  string `json:"mode"`
}

func (k Key) String() string {
	return k.Tonic + " " + k.Mode
}

// enharmonics maps spellings to the canonical one used on the circles.
var enharmonics = map[string]string{
	"d#": "eb",
	"gb": "f#",
	"ab": "g#",
	"a#": "bb",
	"db": "c#",
	"cb": "b",
	"b#": "c",
	"e#": "f",
	"fb": "e",
}

// Circles of fifths, clockwise. Index i of the minor circle is the relative
// minor of index i of the major circle.
var circles = map[string][]string{
	Major: {"c", "g", "d", "a", "e", "b", "f#", "c#", "g#", "eb", "bb", "f"},
	Minor: {"a", "e", "b", "f#", "c#", "g#", "eb", "bb", "f", "c", "g", "d"},
}

// Normalize lower-cases a key and maps its tonic to the canonical spelling.
func Normalize(k Key) Key {
	tonic := strings.ToLower(strings.TrimSpace(k.Tonic))
	if canon, ok := enharmonics[tonic]; ok {
		tonic = canon
	}
	return Key{Tonic: tonic, Mode: strings.ToLower(strings.TrimSpace(k.Mode))}
}

// circleIndex returns the position of a normalised key's tonic on its
// mode's circle, or -1.
func circleIndex(k Key) int {
	for i, t := range circles[k.Mode] {
		if t == k.Tonic {
			return i
		}
	}
	return -1
}

// Classify compares a detected key with the ground truth. Both must be
// normalised and valid.
func Classify(detected, truth Key) Outcome {
	sameTonic := detected.Tonic == truth.Tonic
	sameMode := detected.Mode == truth.Mode

	switch {
	case sameTonic && sameMode:
		return OutcomeCorrect
	case sameTonic:
		return OutcomeParallel
	case sameMode:
		diff := circleIndex(detected) - circleIndex(truth)
		if diff == 1 || diff == -11 {
			return OutcomePerfectFifth
		}
		return OutcomeError
	default:
		// Each tonic on its own mode's circle; relatives share an index.
		if circleIndex(detected) == circleIndex(truth) {
			return OutcomeRelative
		}
		return OutcomeError
	}
}

func validate(k Key) error {
	if _, ok := circles[k.Mode]; !ok {
		return fmt.Errorf("unknown mode %q", k.Mode)
	}
	if circleIndex(k) < 0 {
		return fmt.Errorf("unknown tonic %q", k.Tonic)
	}
	return nil
}

// Evaluator implements evaluation.Task for key detection.
type Evaluator struct{}

// NewEvaluator returns a key detection evaluator.
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

// Evaluate scores one detected key. An unreadable ground-truth key is an
// INVALID_GROUND_TRUTH error; an unreadable detected key scores as a plain
// error and is reported as a recoverable INVALID_RESULT.
func (e *Evaluator) Evaluate(trackID string, result, groundTruth Key) (evaluation.TrackScore, error) {
	truth := Normalize(groundTruth)
	if err := validate(truth); err != nil {
		return evaluation.TrackScore{}, errors.InvalidGroundTruthError(trackID,
			fmt.Sprintf("ground truth key for %s: %v", trackID, err))
	}

	detected := Normalize(result)
	if err := validate(detected); err != nil {
		return record(trackID, OutcomeError), errors.InvalidResultError(trackID,
			fmt.Sprintf("detected key for %s: %v", trackID, err))
	}

	return record(trackID, Classify(detected, truth)), nil
}

func record(trackID string, o Outcome) evaluation.TrackScore {
	flag := func(want Outcome) float64 {
		if o == want {
			return 1
		}
		return 0
	}

	return evaluation.TrackScore{
		TrackID: trackID,
		Metrics: evaluation.Record{
			MetricWeightedScore:     o.Score(),
			MetricCorrect:           flag(OutcomeCorrect),
			MetricPerfectFifthError: flag(OutcomePerfectFifth),
			MetricRelativeError:     flag(OutcomeRelative),
			MetricParallelError:     flag(OutcomeParallel),
			MetricError:             flag(OutcomeError),
		},
		Weight: 1,
	}
}

// Summarize implements evaluation.Task: means of every indicator, so the
// flags become rates.
func (e *Evaluator) Summarize(scores []evaluation.TrackScore) evaluation.Record {
	return evaluation.Mean(scores, metrics)
}
