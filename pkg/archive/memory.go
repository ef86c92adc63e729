package archive

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps archived runs in memory, for tests and one-shot
// runs where persistence is not wanted.
type MemoryStore struct {
	runs map[string]*Run
	mu   sync.RWMutex
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[string]*Run)}
}

// Save archives one run.
func (m *MemoryStore) Save(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := *run
	m.runs[run.RunID] = &r
	return nil
}

// List returns archived runs, newest first.
func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*Run, 0, len(m.runs))
	for _, r := range m.runs {
		c := *r
		runs = append(runs, &c)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Get returns the archived run with the given id, or nil when none
// exists.
func (m *MemoryStore) Get(ctx context.Context, runID string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[runID]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

// Prune removes runs started before the cutoff.
func (m *MemoryStore) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, r := range m.runs {
		if r.StartedAt.Before(olderThan) {
			delete(m.runs, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
