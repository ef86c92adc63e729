package history

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps entries in memory. State is lost when the
// process exits; it exists for one-shot runs and tests.
type MemoryBackend struct {
	entries []*Entry
	mu      sync.RWMutex
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Append stores one entry.
func (m *MemoryBackend) Append(ctx context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e := *entry
	m.entries = append(m.entries, &e)
	return nil
}

// List returns all entries, oldest first.
func (m *MemoryBackend) List(ctx context.Context) ([]*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Entry, 0, len(m.entries))
	for _, e := range m.entries {
		c := *e
		out = append(out, &c)
	}
	return out, nil
}

// Prune removes entries submitted before the cutoff.
func (m *MemoryBackend) Prune(ctx context.Context, olderThan time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.entries[:0]
	removed := 0
	for _, e := range m.entries {
		if e.SubmittedAt.Before(olderThan) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return removed, nil
}

// Close is a no-op for the in-memory backend.
func (m *MemoryBackend) Close() error {
	return nil
}
