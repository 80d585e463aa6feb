package evaluation

import (
	"time"
)

// JobResult is the evaluated form of one job.
type JobResult struct {
	ID      string        `json:"id"`
	Name    string        `json:"name"`
	Overall Record        `json:"overall"`
	Folds   []*FoldResult `json:"folds"`
}

// ResultSet is the assembled outcome of one evaluation run. It is built once
// by the Coordinator and is read-only afterwards; accessors return copies.
type ResultSet struct {
	runID          string
	experiment     string
	task           string
	createdAt      time.Time
	metrics        []Metric
	summaryMetrics []Metric
	folds          []string
	jobs           []*JobResult
	byID           map[string]*JobResult
}

func newResultSet(runID string, exp Experiment, task string, metrics, summaryMetrics []Metric, jobs []*JobResult) *ResultSet {
	byID := make(map[string]*JobResult, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
	}
	return &ResultSet{
		runID:          runID,
		experiment:     exp.Name,
		task:           task,
		createdAt:      time.Now().UTC(),
		metrics:        metrics,
		summaryMetrics: summaryMetrics,
		folds:          exp.FoldNames(),
		jobs:           jobs,
		byID:           byID,
	}
}

// RunID returns the identifier of the evaluation run.
func (rs *ResultSet) RunID() string { return rs.runID }

// Experiment returns the experiment name.
func (rs *ResultSet) Experiment() string { return rs.experiment }

// Task returns the task name.
func (rs *ResultSet) Task() string { return rs.task }

// CreatedAt returns when the result set was assembled.
func (rs *ResultSet) CreatedAt() time.Time { return rs.createdAt }

// Metrics returns the per-track metric names in display order.
func (rs *ResultSet) Metrics() []Metric {
	return append([]Metric(nil), rs.metrics...)
}

// SummaryMetrics returns the fold and overall metric names in display order.
func (rs *ResultSet) SummaryMetrics() []Metric {
	return append([]Metric(nil), rs.summaryMetrics...)
}

// Folds returns the fold names in experiment order.
func (rs *ResultSet) Folds() []string {
	return append([]string(nil), rs.folds...)
}

// Jobs returns the job ids in submission order.
func (rs *ResultSet) Jobs() []string {
	ids := make([]string, len(rs.jobs))
	for i, j := range rs.jobs {
		ids[i] = j.ID
	}
	return ids
}

// JobName returns the display name of a job.
func (rs *ResultSet) JobName(jobID string) (string, bool) {
	j, ok := rs.byID[jobID]
	if !ok {
		return "", false
	}
	return j.Name, true
}

// Overall returns a job's overall record.
func (rs *ResultSet) Overall(jobID string) (Record, bool) {
	j, ok := rs.byID[jobID]
	if !ok {
		return nil, false
	}
	return j.Overall.Clone(), true
}

// FoldRecord returns a job's summary record for one fold.
func (rs *ResultSet) FoldRecord(jobID, fold string) (Record, bool) {
	f := rs.fold(jobID, fold)
	if f == nil {
		return nil, false
	}
	return f.Summary.Clone(), true
}

// TrackRecords returns a job's per-track scores for one fold, in fold order.
func (rs *ResultSet) TrackRecords(jobID, fold string) ([]TrackScore, bool) {
	f := rs.fold(jobID, fold)
	if f == nil {
		return nil, false
	}
	out := make([]TrackScore, len(f.Tracks))
	for i, t := range f.Tracks {
		out[i] = TrackScore{TrackID: t.TrackID, Metrics: t.Metrics.Clone(), Weight: t.Weight}
	}
	return out, true
}

// Coverage returns how many tracks a fold lists and how many were evaluated.
func (rs *ResultSet) Coverage(jobID, fold string) (expected, evaluated int, ok bool) {
	f := rs.fold(jobID, fold)
	if f == nil {
		return 0, 0, false
	}
	return f.Expected, f.Evaluated, true
}

func (rs *ResultSet) fold(jobID, fold string) *FoldResult {
	j, ok := rs.byID[jobID]
	if !ok {
		return nil
	}
	for _, f := range j.Folds {
		if f.Fold == fold {
			return f
		}
	}
	return nil
}

// Snapshot is the serialisable form of a ResultSet.
type Snapshot struct {
	RunID          string       `json:"run_id"`
	Experiment     string       `json:"experiment"`
	Task           string       `json:"task"`
	CreatedAt      time.Time    `json:"created_at"`
	Metrics        []Metric     `json:"metrics"`
	SummaryMetrics []Metric     `json:"summary_metrics"`
	Folds          []string     `json:"folds"`
	Jobs           []*JobResult `json:"jobs"`
}

// Snapshot returns a deep copy of the result set in serialisable form.
func (rs *ResultSet) Snapshot() *Snapshot {
	jobs := make([]*JobResult, len(rs.jobs))
	for i, j := range rs.jobs {
		folds := make([]*FoldResult, len(j.Folds))
		for k, f := range j.Folds {
			tracks, _ := rs.TrackRecords(j.ID, f.Fold)
			folds[k] = &FoldResult{
				Fold:      f.Fold,
				Tracks:    tracks,
				Summary:   f.Summary.Clone(),
				Expected:  f.Expected,
				Evaluated: f.Evaluated,
			}
		}
		jobs[i] = &JobResult{ID: j.ID, Name: j.Name, Overall: j.Overall.Clone(), Folds: folds}
	}

	return &Snapshot{
		RunID:          rs.runID,
		Experiment:     rs.experiment,
		Task:           rs.task,
		CreatedAt:      rs.createdAt,
		Metrics:        rs.Metrics(),
		SummaryMetrics: rs.SummaryMetrics(),
		Folds:          rs.Folds(),
		Jobs:           jobs,
	}
}

// FromSnapshot rebuilds a read-only ResultSet from a stored snapshot.
// The result set takes ownership of s; callers must not modify it afterwards.
func FromSnapshot(s *Snapshot) *ResultSet {
	byID := make(map[string]*JobResult, len(s.Jobs))
	for _, j := range s.Jobs {
		byID[j.ID] = j
	}
	return &ResultSet{
		runID:          s.RunID,
		experiment:     s.Experiment,
		task:           s.Task,
		createdAt:      s.CreatedAt,
		metrics:        append([]Metric(nil), s.Metrics...),
		summaryMetrics: append([]Metric(nil), s.SummaryMetrics...),
		folds:          append([]string(nil), s.Folds...),
		jobs:           s.Jobs,
		byID:           byID,
	}
}
