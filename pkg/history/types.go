package history

import (
	"context"
	"encoding/json"
	"time"

	"classhub/gradekeeper/pkg/ratelimit"
)

// Entry is one locally recorded grading run.
type Entry struct {
	// RunID identifies the run (a generated UUID for local runs).
	RunID string `json:"run_id"`

	// SubmittedAt is when the run started.
	SubmittedAt time.Time `json:"submitted_at"`

	// Counted reports whether the run consumed a grading token.
	Counted bool `json:"counted"`

	// Score is the overall score the run produced, nil when none.
	Score *float64 `json:"score,omitempty"`

	// Tests is the run's test list, verbatim.
	Tests []json.RawMessage `json:"tests,omitempty"`

	// Leaderboard is the run's leaderboard, verbatim.
	Leaderboard json.RawMessage `json:"leaderboard,omitempty"`
}

// Backend persists local history entries. Implementations must return
// entries oldest first from List.
type Backend interface {
	// Append stores one entry. Entries are immutable once appended.
	Append(ctx context.Context, entry *Entry) error

	// List returns all entries, oldest first.
	List(ctx context.Context) ([]*Entry, error)

	// Prune removes entries submitted before the cutoff. Returns the
	// number of entries removed.
	Prune(ctx context.Context, olderThan time.Time) (int, error)

	// Close releases backend resources.
	Close() error
}

// Records converts stored entries into the engine's history shape,
// preserving order.
func Records(entries []*Entry) []ratelimit.SubmissionRecord {
	records := make([]ratelimit.SubmissionRecord, 0, len(entries))
	for _, e := range entries {
		records = append(records, ratelimit.SubmissionRecord{
			SubmittedAt:  e.SubmittedAt,
			Counted:      e.Counted,
			SubmissionID: e.RunID,
			Results: &ratelimit.StoredResult{
				Score:       e.Score,
				Tests:       e.Tests,
				Leaderboard: e.Leaderboard,
			},
		})
	}
	return records
}
