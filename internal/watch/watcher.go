// Package watch re-runs an evaluation when ground-truth or result files
// change on disk.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

// IgnoreFunc reports whether a path should not trigger a re-run.
type IgnoreFunc func(path string, isDir bool) bool

// ChangeFunc is called once per batch of changes with the changed paths
// in sorted order.
type ChangeFunc func(ctx context.Context, changed []string) error

// Config configures a Watcher.
type Config struct {
	Dirs       []string
	Ignore     IgnoreFunc
	OnChange   ChangeFunc
	BatchDelay time.Duration // Default: 500ms
	Logger     *logger.Logger
}

// Watcher batches file system events under a set of directories and
// reports them through a callback. Callbacks never overlap.
type Watcher struct {
	dirs       []string
	ignore     IgnoreFunc
	onChange   ChangeFunc
	batchDelay time.Duration
	log        *logger.Logger

	pending map[string]struct{}
}

// New creates a watcher. Every directory must exist.
func New(cfg Config) (*Watcher, error) {
	if len(cfg.Dirs) == 0 {
		return nil, errors.ValidationError("watch needs at least one directory")
	}
	if cfg.OnChange == nil {
		return nil, errors.ValidationError("watch needs a change callback")
	}
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 500 * time.Millisecond
	}
	if cfg.Ignore == nil {
		cfg.Ignore = func(string, bool) bool { return false }
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	dirs := make([]string, 0, len(cfg.Dirs))
	for _, d := range cfg.Dirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, errors.Wrap(errors.CodeValidation, "resolve "+d, err)
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			return nil, errors.NotFoundError("directory " + d)
		}
		dirs = append(dirs, abs)
	}

	return &Watcher{
		dirs:       dirs,
		ignore:     cfg.Ignore,
		onChange:   cfg.OnChange,
		batchDelay: cfg.BatchDelay,
		log:        cfg.Logger,
		pending:    make(map[string]struct{}),
	}, nil
}

// Run watches until ctx is cancelled. A callback error is logged and
// watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.CodeInternal, "create file watcher", err)
	}
	defer fsWatcher.Close()

	for _, dir := range w.dirs {
		if err := w.addTree(fsWatcher, dir); err != nil {
			return err
		}
	}

	w.log.Info("Watching for changes", "dirs", len(w.dirs))

	// Fires only after a quiet period of batchDelay
	timer := time.NewTimer(w.batchDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(fsWatcher, event) {
				timer.Reset(w.batchDelay)
			}
		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Warn("Watcher error")
		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// addTree watches dir and every non-ignored directory below it.
func (w *Watcher) addTree(fsWatcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			w.log.WithError(err).Warn("Error walking path", "path", path)
			return filepath.SkipDir
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignore(path, true) {
			return filepath.SkipDir
		}
		if err := fsWatcher.Add(path); err != nil {
			return errors.Wrap(errors.CodeInternal, "watch "+path, err)
		}
		return nil
	})
}

// handleEvent records a relevant event and reports whether it was kept.
func (w *Watcher) handleEvent(fsWatcher *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}

	path := event.Name
	info, statErr := os.Stat(path)
	isDir := statErr == nil && info.IsDir()
	if w.ignore(path, isDir) {
		return false
	}

	// New fold directories need watching too
	if isDir && event.Has(fsnotify.Create) {
		if err := w.addTree(fsWatcher, path); err != nil {
			w.log.WithError(err).Warn("Failed to watch new directory", "path", path)
		}
	}

	w.pending[path] = struct{}{}
	return true
}

func (w *Watcher) flush(ctx context.Context) {
	if len(w.pending) == 0 {
		return
	}

	changed := make([]string, 0, len(w.pending))
	for path := range w.pending {
		changed = append(changed, path)
	}
	sort.Strings(changed)
	w.pending = make(map[string]struct{})

	w.log.Info("Processing changes", "count", len(changed))
	if err := w.onChange(ctx, changed); err != nil {
		w.log.WithError(err).Error("Re-evaluation failed")
	}
}
