// Package dataset reads experiment manifests, ground-truth annotations and
// system outputs from disk into the in-memory form the evaluation engine
// consumes.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/security"
)

// Manifest describes an experiment on disk.
//
//	name: mirex-chord
//	task: chord
//	ground_truth: gt
//	exclude: ["*.bak"]
//	folds:
//	  - name: fold1
//	    tracks: [t01, t02]
//	jobs:
//	  - id: sys1
//	    name: System One
//	    dir: results/sys1
//
// Each job directory holds one subdirectory per fold, and each fold
// directory one file per track named <track id>.<task extension>.
type Manifest struct {
	Name        string                 `yaml:"name"`
	Task        string                 `yaml:"task"`
	GroundTruth string                 `yaml:"ground_truth"`
	Exclude     []string               `yaml:"exclude"`
	Folds       []evaluation.TrackList `yaml:"folds"`
	Jobs        []JobSpec              `yaml:"jobs"`

	// baseDir resolves relative paths; it is the manifest's directory.
	baseDir string
}

// JobSpec locates one system's results.
type JobSpec struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Dir  string `yaml:"dir"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeNotFound, fmt.Sprintf("read manifest %s", path), err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	m.baseDir = filepath.Dir(path)
	return m, nil
}

// ParseManifest decodes and validates manifest YAML. Relative paths resolve
// against the working directory.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(errors.CodeValidation, "parse manifest", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate reports every problem with the manifest at once.
func (m *Manifest) Validate() error {
	var errs []string

	if strings.TrimSpace(m.Name) == "" {
		errs = append(errs, "name is required")
	}
	if !IsKnownTask(m.Task) {
		errs = append(errs, fmt.Sprintf("unknown task: %q (must be one of %s)", m.Task, strings.Join(Tasks(), ", ")))
	}
	if strings.TrimSpace(m.GroundTruth) == "" {
		errs = append(errs, "ground_truth directory is required")
	}

	if len(m.Folds) == 0 {
		errs = append(errs, "at least one fold is required")
	}
	folds := make(map[string]bool, len(m.Folds))
	for i, f := range m.Folds {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("fold %d has no name", i))
			continue
		}
		if err := security.ValidateID("fold name", f.Name); err != nil {
			errs = append(errs, err.Error())
		}
		if folds[f.Name] {
			errs = append(errs, fmt.Sprintf("duplicate fold: %s", f.Name))
		}
		folds[f.Name] = true
	}

	if len(m.Jobs) == 0 {
		errs = append(errs, "at least one job is required")
	}
	jobs := make(map[string]bool, len(m.Jobs))
	for i, j := range m.Jobs {
		if j.ID == "" {
			errs = append(errs, fmt.Sprintf("job %d has no id", i))
			continue
		}
		if err := security.ValidateID("job id", j.ID); err != nil {
			errs = append(errs, err.Error())
		}
		if jobs[j.ID] {
			errs = append(errs, fmt.Sprintf("duplicate job: %s", j.ID))
		}
		jobs[j.ID] = true
		if j.Dir == "" {
			errs = append(errs, fmt.Sprintf("job %s has no dir", j.ID))
		}
	}

	if len(errs) > 0 {
		return errors.ValidationError(fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(errs, "\n  - ")))
	}
	return nil
}

// Experiment returns the experiment definition the manifest describes.
func (m *Manifest) Experiment() evaluation.Experiment {
	folds := make([]evaluation.TrackList, len(m.Folds))
	for i, f := range m.Folds {
		folds[i] = evaluation.TrackList{Name: f.Name, Tracks: append([]string(nil), f.Tracks...)}
	}
	return evaluation.Experiment{Name: m.Name, Task: m.Task, Folds: folds}
}

// Resolve returns p relative to the manifest's directory unless it is
// absolute.
func (m *Manifest) Resolve(p string) string {
	if filepath.IsAbs(p) || m.baseDir == "" {
		return p
	}
	return filepath.Join(m.baseDir, p)
}

// Dirs returns the ground-truth directory followed by every job directory,
// resolved.
func (m *Manifest) Dirs() []string {
	dirs := make([]string, 0, len(m.Jobs)+1)
	dirs = append(dirs, m.Resolve(m.GroundTruth))
	for _, j := range m.Jobs {
		dirs = append(dirs, m.Resolve(j.Dir))
	}
	return dirs
}

// Ignore reports whether path, inside one of the manifest's directories,
// is excluded from loading. Paths outside every directory are not ignored.
func (m *Manifest) Ignore(path string, isDir bool) bool {
	for _, dir := range m.Dirs() {
		rel, err := filepath.Rel(dir, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		if rel == "." {
			return false
		}
		return newIgnoreFilter(dir, m.Exclude).ShouldIgnore(path, isDir)
	}
	return false
}
