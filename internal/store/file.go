package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nemaeval/nema-eval/internal/evaluation"
	"github.com/nemaeval/nema-eval/internal/pkg/security"
)

// FileStore stores each run as a JSON file in a directory.
type FileStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileStore creates a new file-based store rooted at basePath.
func NewFileStore(basePath string) *FileStore {
	return &FileStore{
		basePath: basePath,
	}
}

func (f *FileStore) runPath(runID string) string {
	return filepath.Join(f.basePath, runID+".json")
}

func (f *FileStore) Save(ctx context.Context, snap *evaluation.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	// Ensure directory exists
	if err := os.MkdirAll(f.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run: %w", err)
	}

	// Write then rename so readers never see a partial file
	tmp := f.runPath(snap.RunID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write run file: %w", err)
	}
	if err := os.Rename(tmp, f.runPath(snap.RunID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write run file: %w", err)
	}

	return nil
}

func (f *FileStore) Load(ctx context.Context, runID string) (*evaluation.Snapshot, error) {
	// Ids that are not plain file names cannot have been saved
	if security.ValidateID("run id", runID) != nil {
		return nil, runNotFound(runID)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	return f.read(f.runPath(runID), runID)
}

func (f *FileStore) read(path, runID string) (*evaluation.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, runNotFound(runID)
		}
		return nil, fmt.Errorf("failed to read run file: %w", err)
	}

	var snap evaluation.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run %s: %w", runID, err)
	}
	return &snap, nil
}

func (f *FileStore) List(ctx context.Context) ([]Summary, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []Summary{}, nil
		}
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	list := make([]Summary, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		runID := strings.TrimSuffix(entry.Name(), ".json")
		snap, err := f.read(filepath.Join(f.basePath, entry.Name()), runID)
		if err != nil {
			return nil, err
		}
		list = append(list, summaryOf(snap))
	}
	sortSummaries(list)
	return list, nil
}

func (f *FileStore) Delete(ctx context.Context, runID string) error {
	if security.ValidateID("run id", runID) != nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.runPath(runID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete run file: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
