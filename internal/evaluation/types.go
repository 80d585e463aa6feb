// Package evaluation scores the output of music information retrieval systems
// against ground truth and aggregates per-track scores into fold and job
// summaries.
package evaluation

// Metric names one numeric measurement produced by a task.
type Metric string

// Record maps metric names to values for a track, a fold or a job.
type Record map[Metric]float64

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// TrackList is a named, ordered list of track ids: one cross-validation fold
// or the whole test set.
type TrackList struct {
	Name   string   `json:"name" yaml:"name"`
	Tracks []string `json:"tracks" yaml:"tracks"`
}

// Experiment defines the folds every job must report.
type Experiment struct {
	Name  string      `json:"name"`
	Task  string      `json:"task"`
	Folds []TrackList `json:"folds"`
}

// FoldNames returns the fold names in definition order.
func (e Experiment) FoldNames() []string {
	names := make([]string, len(e.Folds))
	for i, f := range e.Folds {
		names[i] = f.Name
	}
	return names
}

// TrackRecord is one raw record for a track, either a system output or a
// ground-truth annotation.
type TrackRecord[R any] struct {
	TrackID string
	Data    R
}

// Job is one system under evaluation with its submitted results per fold.
type Job[R any] struct {
	ID      string
	Name    string
	Results map[string][]TrackRecord[R]
}

// TrackScore is the scored form of one track.
type TrackScore struct {
	TrackID string `json:"track_id"`
	Metrics Record `json:"metrics"`
	// Weight is the track's share in length-weighted averages. Tasks that
	// do not weight leave it at 1.
	Weight float64 `json:"weight"`
}

// FoldResult holds the per-track scores and the summary for one job and fold.
type FoldResult struct {
	Fold    string       `json:"fold"`
	Tracks  []TrackScore `json:"tracks"`
	Summary Record       `json:"summary"`
	// Expected is the number of tracks the fold lists; Evaluated may be lower
	// when results are missing.
	Expected  int `json:"expected"`
	Evaluated int `json:"evaluated"`
}

// Task scores one track of system output against its ground truth and
// defines how track scores are summarised for a fold.
type Task[R any] interface {
	// Name is the task identifier, e.g. "chord".
	Name() string

	// Metrics lists the per-track metric names in display order.
	Metrics() []Metric

	// SummaryMetrics lists the fold and overall metric names in display order.
	SummaryMetrics() []Metric

	// Evaluate scores one track. Errors with a fatal code abort the fold.
	Evaluate(trackID string, result, groundTruth R) (TrackScore, error)

	// Summarize combines the track scores of one fold.
	Summarize(scores []TrackScore) Record
}
