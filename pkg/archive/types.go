package archive

import (
	"context"
	"encoding/json"
	"time"
)

// Run is one archived grading run.
type Run struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`

	// Assignment is the assignment name the run graded.
	Assignment string `json:"assignment"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// Counted reports whether the run consumed a grading token.
	Counted bool `json:"counted"`

	// Score is the overall score, nil when per-test scores carried the
	// grade.
	Score *float64 `json:"score,omitempty"`

	// Payload is the full results payload, verbatim.
	Payload json.RawMessage `json:"payload"`
}

// Store persists archived runs.
type Store interface {
	// Save archives one run.
	Save(ctx context.Context, run *Run) error

	// List returns archived runs, newest first, at most limit (0 means
	// all).
	List(ctx context.Context, limit int) ([]*Run, error)

	// Get returns the archived run with the given id, or nil when none
	// exists.
	Get(ctx context.Context, runID string) (*Run, error)

	// Prune removes runs started before the cutoff. Returns the number
	// removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases store resources.
	Close() error
}
