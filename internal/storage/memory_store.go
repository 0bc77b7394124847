package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-memory implementation of RunStore for testing and
// for evaluations that do not persist their runs.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]Run
	results map[string][]Result
}

var _ RunStore = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:    make(map[string]Run),
		results: make(map[string][]Result),
	}
}

// Initialize implements RunStore.
func (m *MemoryStore) Initialize(path string, readOnly bool) error {
	return nil
}

// Close implements RunStore.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = make(map[string]Run)
	m.results = make(map[string][]Result)
	return nil
}

// SaveRun implements RunStore.
func (m *MemoryStore) SaveRun(ctx context.Context, run *Run, results []Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prepareRun(run, results)
	m.runs[run.ID] = *run
	m.results[run.ID] = append([]Result(nil), results...)
	return nil
}

// GetRun implements RunStore.
func (m *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[id]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return &run, nil
}

// ListRuns implements RunStore.
func (m *MemoryStore) ListRuns(ctx context.Context) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*Run, 0, len(m.runs))
	for _, run := range m.runs {
		r := run
		runs = append(runs, &r)
	}
	sortRuns(runs)
	return runs, nil
}

// GetResults implements RunStore.
func (m *MemoryStore) GetResults(ctx context.Context, id string) ([]Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.runs[id]; !ok {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return append([]Result(nil), m.results[id]...), nil
}

// DeleteRun implements RunStore.
func (m *MemoryStore) DeleteRun(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[id]; !ok {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	delete(m.runs, id)
	delete(m.results, id)
	return nil
}

// SearchPredictions implements RunStore.
func (m *MemoryStore) SearchPredictions(ctx context.Context, query string, limit int) ([]PredictionHit, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []PredictionHit
	for id, results := range m.results {
		hits = append(hits, matchResults(id, results, tokens)...)
	}
	return rankHits(hits, limit), nil
}
