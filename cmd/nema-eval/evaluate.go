package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nemaeval/nema-eval/internal/dataset"
	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/evaluation/chord"
	"github.com/nemaeval/nema-eval/internal/evaluation/key"
	"github.com/nemaeval/nema-eval/internal/evaluation/melody"
	"github.com/nemaeval/nema-eval/internal/evaluation/tempo"
	"github.com/nemaeval/nema-eval/internal/watch"
)

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate system results against ground truth",
		Long: `Load an experiment manifest, score every job over every fold and print
the per-fold and overall summaries.

The result set is saved to the configured result store unless --no-save is
given. Progress events go to the configured event bus.

Examples:
  nema-eval evaluate -m mirex-key/manifest.yaml
  nema-eval evaluate -m chords.yaml --format json
  nema-eval evaluate -m melody.yaml --watch`,
		RunE: runEvaluate,
	}

	cmd.Flags().StringP("manifest", "m", "", "experiment manifest path (required)")
	cmd.Flags().String("run-id", "", "run id (default: generated)")
	cmd.Flags().Bool("no-save", false, "do not save the result set")
	cmd.Flags().Bool("tracks", false, "also print per-track scores")
	cmd.Flags().Bool("watch", false, "re-evaluate when ground truth or result files change")
	cmd.Flags().Int("workers", 0, "concurrent job×fold evaluations (overrides config)")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}

// evaluateOptions are the per-invocation settings of an evaluation.
type evaluateOptions struct {
	runID  string
	save   bool
	tracks bool
	format string
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	manifestPath, _ := cmd.Flags().GetString("manifest")
	watchMode, _ := cmd.Flags().GetBool("watch")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if cmd.Flags().Changed("workers") {
		a.cfg.Eval.Workers, _ = cmd.Flags().GetInt("workers")
	}

	opts := evaluateOptions{}
	opts.runID, _ = cmd.Flags().GetString("run-id")
	noSave, _ := cmd.Flags().GetBool("no-save")
	opts.save = !noSave
	opts.tracks, _ = cmd.Flags().GetBool("tracks")
	opts.format, _ = cmd.Flags().GetString("format")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if !watchMode {
		return evaluateOnce(ctx, a, manifestPath, opts, out)
	}

	// Each re-run gets its own run id.
	if opts.runID != "" {
		a.log.Warn("Ignoring --run-id in watch mode")
		opts.runID = ""
	}
	if err := evaluateOnce(ctx, a, manifestPath, opts, out); err != nil {
		a.log.WithError(err).Error("Initial evaluation failed")
	}

	m, err := dataset.LoadManifest(manifestPath)
	if err != nil {
		return err
	}
	last, err := dataset.Fingerprint(m)
	if err != nil {
		return err
	}
	w, err := watch.New(watch.Config{
		Dirs:   m.Dirs(),
		Ignore: m.Ignore,
		Logger: a.log,
		OnChange: func(ctx context.Context, changed []string) error {
			current, err := dataset.Fingerprint(m)
			if err != nil {
				return err
			}
			if current == last {
				a.log.Debug("Files touched without content changes", "paths", len(changed))
				return nil
			}
			last = current
			return evaluateOnce(ctx, a, manifestPath, opts, out)
		},
	})
	if err != nil {
		return err
	}
	return w.Run(ctx)
}

// evaluateOnce loads the manifest and dataset, runs the evaluation, saves
// and renders the result set.
func evaluateOnce(ctx context.Context, a *app, manifestPath string, opts evaluateOptions, out io.Writer) error {
	m, err := dataset.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	rs, err := evaluateManifest(ctx, a, m, opts.runID)
	if err != nil {
		return err
	}

	if opts.save {
		s, err := a.openStore()
		if err != nil {
			return err
		}
		if s != nil {
			if err := s.Save(ctx, rs.Snapshot()); err != nil {
				return err
			}
			a.log.Info("Result set saved", "run_id", rs.RunID(), "store", a.cfg.Store.Type)
		}
	}

	return writeResultSet(out, rs, opts.format, opts.tracks)
}

// evaluateManifest dispatches to the evaluator for the manifest's task.
func evaluateManifest(ctx context.Context, a *app, m *dataset.Manifest, runID string) (*evaluation.ResultSet, error) {
	switch m.Task {
	case chord.TaskName:
		dict := chord.NewDictionary()
		var strategy chord.OverlapStrategy = chord.NewFuzzyOverlap(dict)
		if a.cfg.Eval.ChordMode == "strict" {
			strategy = chord.StrictOverlap{}
		}
		return runTask[[]chord.Segment](ctx, a, m, runID, chord.NewEvaluator(strategy), dataset.ChordFormat(dict))
	case key.TaskName:
		return runTask[key.Key](ctx, a, m, runID, key.NewEvaluator(), dataset.KeyFormat())
	case melody.TaskName:
		return runTask[[]melody.Frame](ctx, a, m, runID, melody.NewEvaluator(), dataset.MelodyFormat())
	case tempo.TaskName:
		return runTask[tempo.Tempo](ctx, a, m, runID, tempo.NewEvaluator(), dataset.TempoFormat())
	default:
		return nil, fmt.Errorf("unknown task: %s", m.Task)
	}
}

// runTask loads the dataset for one task and evaluates it.
func runTask[R any](ctx context.Context, a *app, m *dataset.Manifest, runID string, task evaluation.Task[R], format dataset.Format[R]) (*evaluation.ResultSet, error) {
	start := time.Now()
	ds, err := dataset.Load(m, format, a.log)
	if err != nil {
		return nil, err
	}
	a.log.Debug("Dataset read", "duration_ms", time.Since(start).Milliseconds())

	opts := []evaluation.Option{
		evaluation.WithWorkers(a.cfg.Eval.Workers),
		evaluation.WithLogger(a.log),
		evaluation.WithRunID(runID),
	}
	n, err := a.notifier()
	if err != nil {
		// Progress events are optional; the evaluation still runs.
		a.log.WithError(err).Warn("Event bus unavailable")
	} else if n != nil {
		opts = append(opts, evaluation.WithObserver(n))
	}

	coord := evaluation.NewCoordinator[R](task, ds.GroundTruth, opts...)
	return coord.Run(ctx, ds.Experiment, ds.Jobs)
}
