package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nemaeval/nema-eval/internal/pkg/errors"
	"github.com/nemaeval/nema-eval/internal/pkg/logger"
)

func TestNew_Validation(t *testing.T) {
	noop := func(context.Context, []string) error { return nil }
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  Config
		code string
	}{
		{"no dirs", Config{OnChange: noop}, errors.CodeValidation},
		{"no callback", Config{Dirs: []string{dir}}, errors.CodeValidation},
		{"missing dir", Config{Dirs: []string{filepath.Join(dir, "nope")}, OnChange: noop}, errors.CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if errors.CodeOf(err) != tt.code {
				t.Errorf("New() error = %v, want %s", err, tt.code)
			}
		})
	}

	w, err := New(Config{Dirs: []string{dir}, OnChange: noop})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if w.batchDelay != 500*time.Millisecond {
		t.Errorf("batchDelay = %v, want 500ms", w.batchDelay)
	}
}

func TestWatcher_BatchesChanges(t *testing.T) {
	dir := t.TempDir()
	fold := filepath.Join(dir, "fold1")
	if err := os.MkdirAll(fold, 0755); err != nil {
		t.Fatal(err)
	}

	batches := make(chan []string, 4)
	w, err := New(Config{
		Dirs:       []string{dir},
		BatchDelay: 100 * time.Millisecond,
		Logger:     logger.Discard(),
		Ignore: func(path string, isDir bool) bool {
			return strings.HasSuffix(path, ".tmp")
		},
		OnChange: func(ctx context.Context, changed []string) error {
			batches <- changed
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register directories.
	time.Sleep(200 * time.Millisecond)

	for _, name := range []string{"t01.key", "t02.key", "scratch.tmp"} {
		if err := os.WriteFile(filepath.Join(fold, name), []byte("C major\n"), 0644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case changed := <-batches:
		for _, p := range changed {
			if strings.HasSuffix(p, ".tmp") {
				t.Errorf("ignored file reported: %s", p)
			}
		}
		found := 0
		for _, p := range changed {
			if strings.HasSuffix(p, "t01.key") || strings.HasSuffix(p, "t02.key") {
				found++
			}
		}
		if found != 2 {
			t.Errorf("changed = %v, want both track files", changed)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change batch")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
