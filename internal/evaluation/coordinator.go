package evaluation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

// Observer is notified as a run progresses. FoldCompleted is called from
// worker goroutines and must be safe for concurrent use.
type Observer interface {
	FoldCompleted(ctx context.Context, runID, jobID string, fold *FoldResult)
	RunCompleted(ctx context.Context, rs *ResultSet)
}

type options struct {
	workers  int
	log      *logger.Logger
	observer Observer
	runID    string
}

// Option configures a Coordinator.
type Option func(*options)

// WithWorkers sets how many job×fold evaluations run at once.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithLogger sets the logger used for warnings about incomplete results.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithObserver registers a progress observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(o *options) {
		o.runID = id
	}
}

// Coordinator evaluates every job over every fold of an experiment.
type Coordinator[R any] struct {
	task Task[R]
	gt   GroundTruth[R]
	opts options
}

// NewCoordinator creates a coordinator for one task and its ground truth.
func NewCoordinator[R any](task Task[R], gt GroundTruth[R], opts ...Option) *Coordinator[R] {
	o := options{
		workers: 4,
		log:     logger.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Coordinator[R]{task: task, gt: gt, opts: o}
}

// Run checks that every job reports the experiment's folds, evaluates each
// job×fold pair concurrently and assembles the result set.
//
// Any fatal error aborts the run for all jobs and no result set is returned.
// Job and fold order in the result set follows the inputs.
func (c *Coordinator[R]) Run(ctx context.Context, exp Experiment, jobs []Job[R]) (*ResultSet, error) {
	if exp.Task != "" && exp.Task != c.task.Name() {
		return nil, errors.ValidationError(
			fmt.Sprintf("experiment task %q does not match evaluator %q", exp.Task, c.task.Name()))
	}

	if err := CheckFolds(exp.Folds, jobs); err != nil {
		return nil, err
	}

	runID := c.opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := c.opts.log.WithRun(runID)

	start := time.Now()
	log.Info("Starting evaluation",
		"experiment", exp.Name,
		"task", c.task.Name(),
		"jobs", len(jobs),
		"folds", len(exp.Folds),
		"workers", c.opts.workers,
	)

	// Each worker writes only slots[job][fold].
	slots := make([][]*FoldResult, len(jobs))
	for i := range slots {
		slots[i] = make([]*FoldResult, len(exp.Folds))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.workers)

	for ji, job := range jobs {
		for fi, fold := range exp.Folds {
			g.Go(func() error {
				res, err := EvaluateFold(gctx, c.task, c.gt, log, job.ID, fold, job.Results[fold.Name])
				if err != nil {
					return err
				}
				slots[ji][fi] = res
				if c.opts.observer != nil {
					c.opts.observer.FoldCompleted(gctx, runID, job.ID, res)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Evaluation aborted")
		return nil, err
	}

	results := make([]*JobResult, len(jobs))
	for ji, job := range jobs {
		name := job.Name
		if name == "" {
			name = job.ID
		}
		results[ji] = &JobResult{
			ID:      job.ID,
			Name:    name,
			Overall: JobOverall(slots[ji]),
			Folds:   slots[ji],
		}
	}

	rs := newResultSet(runID, exp, c.task.Name(), c.task.Metrics(), c.task.SummaryMetrics(), results)

	log.Info("Evaluation complete", "duration", time.Since(start).String())

	if c.opts.observer != nil {
		c.opts.observer.RunCompleted(ctx, rs)
	}

	return rs, nil
}
