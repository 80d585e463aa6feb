package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

// Dataset is everything one evaluation run needs, held in memory.
type Dataset[R any] struct {
	Experiment  evaluation.Experiment
	GroundTruth *evaluation.MapGroundTruth[R]
	Jobs        []evaluation.Job[R]
}

// Load reads the ground truth and every job's results for m.
//
// An unreadable ground-truth file fails the load. An unreadable result file
// is skipped with a warning, so the track surfaces as a missing result.
func Load[R any](m *Manifest, format Format[R], log *logger.Logger) (*Dataset[R], error) {
	if log == nil {
		log = logger.Default()
	}

	gtDir := m.Resolve(m.GroundTruth)
	gtRecords, err := readTracks(gtDir, format, newIgnoreFilter(gtDir, m.Exclude), func(trackID, path string, err error) error {
		return errors.InvalidGroundTruthError(trackID, fmt.Sprintf("%s: %v", path, err))
	})
	if err != nil {
		return nil, err
	}

	ds := &Dataset[R]{
		Experiment:  m.Experiment(),
		GroundTruth: evaluation.NewMapGroundTruth(gtRecords),
		Jobs:        make([]evaluation.Job[R], 0, len(m.Jobs)),
	}

	for _, spec := range m.Jobs {
		job, err := loadJob(m.Resolve(spec.Dir), spec, format, m.Exclude, log.WithJob(spec.ID))
		if err != nil {
			return nil, err
		}
		ds.Jobs = append(ds.Jobs, job)
	}

	log.Info("Dataset loaded",
		"experiment", m.Name,
		"task", m.Task,
		"ground_truth", ds.GroundTruth.Len(),
		"jobs", len(ds.Jobs),
	)
	return ds, nil
}

func loadJob[R any](dir string, spec JobSpec, format Format[R], exclude []string, log *logger.Logger) (evaluation.Job[R], error) {
	job := evaluation.Job[R]{
		ID:      spec.ID,
		Name:    spec.Name,
		Results: make(map[string][]evaluation.TrackRecord[R]),
	}

	filter := newIgnoreFilter(dir, exclude)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return job, errors.Wrap(errors.CodeNotFound, fmt.Sprintf("read results of job %s", spec.ID), err)
	}

	for _, e := range entries {
		foldDir := filepath.Join(dir, e.Name())
		if !e.IsDir() || filter.ShouldIgnore(foldDir, true) {
			continue
		}

		fold := e.Name()
		records, err := readTracks(foldDir, format, filter, func(trackID, path string, err error) error {
			log.WithFold(fold).WithTrack(trackID).WithError(err).Warn("Unreadable result skipped", "path", path)
			return nil
		})
		if err != nil {
			return job, err
		}
		job.Results[fold] = records
	}
	return job, nil
}

// readTracks parses every file with the format's extension in dir, in file
// name order. onBad decides what a parse failure does: a nil return skips
// the file.
func readTracks[R any](dir string, format Format[R], filter *ignoreFilter, onBad func(trackID, path string, err error) error) ([]evaluation.TrackRecord[R], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, fmt.Sprintf("read directory %s", dir), err)
	}

	var records []evaluation.TrackRecord[R]
	for _, e := range entries {
		name := e.Name()
		path := filepath.Join(dir, name)
		if e.IsDir() || filepath.Ext(name) != format.Ext || filter.ShouldIgnore(path, false) {
			continue
		}
		trackID := strings.TrimSuffix(name, format.Ext)

		data, err := parseFile(path, format)
		if err != nil {
			if err := onBad(trackID, path, err); err != nil {
				return nil, err
			}
			continue
		}
		records = append(records, evaluation.TrackRecord[R]{TrackID: trackID, Data: data})
	}
	return records, nil
}

func parseFile[R any](path string, format Format[R]) (R, error) {
	f, err := os.Open(path)
	if err != nil {
		var zero R
		return zero, err
	}
	defer f.Close()
	return format.Parse(f)
}
