// Package melody scores frame-level fundamental frequency tracks.
//
// Ground truth and system output are sampled on the same frame grid. A
// positive F0 is a voiced frame; zero is unvoiced. A system may report a
// negative F0 to mark a frame it believes unvoiced while still offering
// |F0| as its pitch candidate, which earns raw pitch credit.
package melody

import (
	"fmt"
	"math"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

// TaskName identifies the melody task.
const TaskName = "melody"

// Metric names.
const (
	MetricOverallAccuracy   evaluation.Metric = "MELODY_OVERALL_ACCURACY"
	MetricRawPitchAccuracy  evaluation.Metric = "MELODY_RAW_PITCH_ACCURACY"
	MetricRawChromaAccuracy evaluation.Metric = "MELODY_RAW_CHROMA_ACCURACY"
	MetricVoicingRecall     evaluation.Metric = "MELODY_VOICING_RECALL"
	MetricVoicingFalseAlarm evaluation.Metric = "MELODY_VOICING_FALSE_ALARM"
)

var metrics = []evaluation.Metric{
	MetricOverallAccuracy,
	MetricRawPitchAccuracy,
	MetricRawChromaAccuracy,
	MetricVoicingRecall,
	MetricVoicingFalseAlarm,
}

// Tolerance is the pitch tolerance in semitones.
const Tolerance = 0.5

// rateFloor replaces zero terms in the false alarm rate.
const rateFloor = 0.001

// Reference octave for chroma comparison.
const (
	octaveLow  = 220.0
	octaveHigh = 440.0
)

var toleranceRatio = math.Pow(2, Tolerance/12)

// Frame is one analysis frame: a time in seconds and an F0 in Hz.
type Frame struct {
	Time float64 `json:"time"`
	F0   float64 `json:"f0"`
}

// Counts are the per-frame classification totals for one track.
type Counts struct {
	Frames            int
	Voiced            int
	Unvoiced          int
	Correct           int
	Incorrect         int
	FalsePos          int
	FalseNeg          int
	FalseNegTol       int
	BothSilent        int
	OctaveCorrect     int
	OctaveFalseNegTol int
}

// Count classifies every ground-truth frame. System frames past the end of
// the system track count as unvoiced.
func Count(result, groundTruth []Frame) Counts {
	c := Counts{Frames: len(groundTruth)}

	for i, g := range groundTruth {
		var det float64
		if i < len(result) {
			det = result[i].F0
		}
		gt := g.F0

		if gt > 0 {
			c.Voiced++
			switch {
			case det > 0:
				if InTolerance(det, gt) {
					c.Correct++
				} else {
					c.Incorrect++
				}
				if ChromaMatch(det, gt) {
					c.OctaveCorrect++
				}
			default:
				c.FalseNeg++
				if det < 0 {
					if InTolerance(-det, gt) {
						c.FalseNegTol++
					}
					if ChromaMatch(-det, gt) {
						c.OctaveFalseNegTol++
					}
				}
			}
			continue
		}

		c.Unvoiced++
		if det > 0 {
			c.FalsePos++
		} else {
			c.BothSilent++
		}
	}
	return c
}

// InTolerance reports whether det lies strictly inside the tolerance band
// around gt.
func InTolerance(det, gt float64) bool {
	return det > gt/toleranceRatio && det < gt*toleranceRatio
}

// ChromaMatch compares two frequencies ignoring octave. After folding into
// the reference octave, values on either side of its edge are also compared
// at double frequency.
func ChromaMatch(det, gt float64) bool {
	fd, fg := FoldOctave(det), FoldOctave(gt)
	return InTolerance(fd, fg) || InTolerance(2*fd, fg) || InTolerance(fd, 2*fg)
}

// FoldOctave maps a positive frequency into [220, 440) Hz.
func FoldOctave(f float64) float64 {
	if f <= 0 {
		return f
	}
	for f < octaveLow {
		f *= 2
	}
	for f >= octaveHigh {
		f /= 2
	}
	return f
}

// Evaluator implements evaluation.Task for melody tracks.
type Evaluator struct{}

// NewEvaluator returns a melody evaluator.
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

// Evaluate scores one track. An empty ground truth is INVALID_GROUND_TRUTH.
func (e *Evaluator) Evaluate(trackID string, result, groundTruth []Frame) (evaluation.TrackScore, error) {
	if len(groundTruth) == 0 {
		return evaluation.TrackScore{}, errors.InvalidGroundTruthError(trackID,
			fmt.Sprintf("ground truth for %s has no frames", trackID))
	}

	c := Count(result, groundTruth)
	return evaluation.TrackScore{
		TrackID: trackID,
		Metrics: c.Record(),
		Weight:  float64(c.Frames),
	}, nil
}

// Record converts counts to the five track metrics. Voiced-frame rates are
// 1 for a track with no voiced ground truth.
func (c Counts) Record() evaluation.Record {
	return evaluation.Record{
		MetricOverallAccuracy:   float64(c.Correct+c.BothSilent) / float64(c.Frames),
		MetricRawPitchAccuracy:  voicedRate(c.Correct+c.FalseNegTol, c.Voiced),
		MetricRawChromaAccuracy: voicedRate(c.OctaveCorrect+c.OctaveFalseNegTol, c.Voiced),
		MetricVoicingRecall:     voicedRate(c.Correct+c.Incorrect, c.Voiced),
		MetricVoicingFalseAlarm: math.Max(float64(c.FalsePos), rateFloor) / math.Max(float64(c.Unvoiced), rateFloor),
	}
}

func voicedRate(n, voiced int) float64 {
	if voiced == 0 {
		return 1
	}
	return float64(n) / float64(voiced)
}

// Summarize implements evaluation.Task.
func (e *Evaluator) Summarize(scores []evaluation.TrackScore) evaluation.Record {
	return evaluation.Mean(scores, metrics)
}
