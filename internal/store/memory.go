package store

import (
	"context"
	"sync"

	"github.com/nemaeval/nema-eval/internal/evaluation"
)

// MemoryStore keeps snapshots in memory (for testing and one-shot runs).
type MemoryStore struct {
	runs map[string]*evaluation.Snapshot
	mu   sync.RWMutex
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]*evaluation.Snapshot),
	}
}

// clone deep-copies a snapshot so callers never share state with the store.
func clone(s *evaluation.Snapshot) *evaluation.Snapshot {
	return evaluation.FromSnapshot(s).Snapshot()
}

func (m *MemoryStore) Save(ctx context.Context, snap *evaluation.Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.runs[snap.RunID] = clone(snap)
	return nil
}

func (m *MemoryStore) Load(ctx context.Context, runID string) (*evaluation.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, exists := m.runs[runID]
	if !exists {
		return nil, runNotFound(runID)
	}
	return clone(snap), nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]Summary, 0, len(m.runs))
	for _, snap := range m.runs {
		list = append(list, summaryOf(snap))
	}
	sortSummaries(list)
	return list, nil
}

func (m *MemoryStore) Delete(ctx context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.runs, runID)
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
