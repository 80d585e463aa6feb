// Package chord scores chord transcriptions by rasterising both segment
// sequences onto a fixed time grid and comparing them bin by bin.
package chord

import (
	"fmt"
	"math"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
)

// TaskName identifies the chord task.
const TaskName = "chord"

// Resolution is the number of grid bins per second.
const Resolution = 1000

// edgeEpsilon absorbs float noise when seconds are scaled to bins, so that
// 0.3 s lands on bin 300 and not 301.
const edgeEpsilon = 1e-9

// Metric names.
const (
	MetricOverlapRatio         evaluation.Metric = "CHORD_OVERLAP_RATIO"
	MetricWeightedOverlapRatio evaluation.Metric = "CHORD_WEIGHTED_AVERAGE_OVERLAP_RATIO"
)

// Segment is one chord spanning [Onset, Offset) seconds. Notes holds pitch
// classes, root first, or the single value NoChord.
type Segment struct {
	Onset  float64 `json:"onset"`
	Offset float64 `json:"offset"`
	Notes  []int   `json:"notes"`
}

// Evaluator implements evaluation.Task for chord sequences.
type Evaluator struct {
	strategy OverlapStrategy
}

// NewEvaluator returns a chord evaluator using the given bin strategy.
func NewEvaluator(strategy OverlapStrategy) *Evaluator {
	return &Evaluator{strategy: strategy}
}

// Name implements evaluation.Task.
func (e *Evaluator) Name() string { return TaskName }

// Metrics implements evaluation.Task.
func (e *Evaluator) Metrics() []evaluation.Metric {
	return []evaluation.Metric{MetricOverlapRatio}
}

// SummaryMetrics implements evaluation.Task.
func (e *Evaluator) SummaryMetrics() []evaluation.Metric {
	return []evaluation.Metric{MetricOverlapRatio, MetricWeightedOverlapRatio}
}

// Evaluate returns the fraction of ground-truth bins the system labels
// correctly. The track weight is the ground-truth length in bins.
//
// A ground truth spanning no bins is an INVALID_GROUND_TRUTH error. A system
// output spanning no bins scores 0 and is reported as a recoverable
// INVALID_RESULT error.
func (e *Evaluator) Evaluate(trackID string, result, groundTruth []Segment) (evaluation.TrackScore, error) {
	lnGT := int(math.Floor(Resolution*lastOffset(groundTruth) + edgeEpsilon))
	if lnGT <= 0 {
		return evaluation.TrackScore{}, errors.InvalidGroundTruthError(trackID,
			fmt.Sprintf("ground truth for %s spans no grid bins", trackID))
	}

	score := evaluation.TrackScore{
		TrackID: trackID,
		Metrics: evaluation.Record{MetricOverlapRatio: 0},
		Weight:  float64(lnGT),
	}

	lnSys := int(math.Ceil(Resolution*lastOffset(result) - edgeEpsilon))
	if lnSys <= 0 {
		return score, errors.InvalidResultError(trackID,
			fmt.Sprintf("system output for %s spans no grid bins", trackID))
	}

	gtGrid := rasterize(groundTruth, lnGT)
	sysGrid := rasterize(result, lnSys)

	n := min(lnGT, lnSys)
	var sum float64
	lastG, lastS, lastVal := int32(-1), int32(-1), 0.0
	for i := 0; i < n; i++ {
		g, s := gtGrid[i], sysGrid[i]
		if g < 0 || s < 0 {
			continue
		}
		// Consecutive bins mostly repeat the same segment pair.
		if g != lastG || s != lastS {
			lastG, lastS = g, s
			lastVal = e.strategy.Overlap(groundTruth[g].Notes, result[s].Notes)
		}
		sum += lastVal
	}

	score.Metrics[MetricOverlapRatio] = sum / float64(lnGT)
	return score, nil
}

// Summarize implements evaluation.Task: the plain mean and the
// length-weighted mean of the overlap ratios.
func (e *Evaluator) Summarize(scores []evaluation.TrackScore) evaluation.Record {
	rec := evaluation.Mean(scores, []evaluation.Metric{MetricOverlapRatio})
	rec[MetricWeightedOverlapRatio] = evaluation.WeightedMean(scores, MetricOverlapRatio)
	return rec
}

func lastOffset(segments []Segment) float64 {
	if len(segments) == 0 {
		return 0
	}
	return segments[len(segments)-1].Offset
}

// rasterize maps each of n bins to the index of the segment covering it, or
// -1 when no segment does.
func rasterize(segments []Segment, n int) []int32 {
	grid := make([]int32, n)
	for i := range grid {
		grid[i] = -1
	}

	for idx, seg := range segments {
		start := max(binEdge(seg.Onset), 0)
		end := min(binEdge(seg.Offset), n)
		for b := start; b < end; b++ {
			grid[b] = int32(idx)
		}
	}
	return grid
}

// binEdge returns the first bin at or after t seconds.
func binEdge(t float64) int {
	return int(math.Ceil(t*Resolution - edgeEpsilon))
}
