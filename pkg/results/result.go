package results

import (
	"encoding/json"
	"fmt"
	"os"
)

// Result is the payload written to results.json at the end of a run.
type Result struct {
	// ExecutionTime is how long the run took, in seconds.
	ExecutionTime float64 `json:"execution_time"`

	// Score is the overall score. Omitted when per-test scores carry
	// the grade.
	Score *float64 `json:"score,omitempty"`

	// Output is the top-level text shown to the student.
	Output string `json:"output,omitempty"`

	// Visibility controls when the whole payload becomes visible
	// (visible, hidden, after_due_date, after_published).
	Visibility string `json:"visibility,omitempty"`

	// StdoutVisibility controls when captured stdout becomes visible.
	StdoutVisibility string `json:"stdout_visibility,omitempty"`

	// ExtraData carries run metadata the platform stores alongside the
	// grade. sub_counts (0|1) records whether this run consumed a
	// grading token; id is the submission identifier.
	ExtraData map[string]any `json:"extra_data,omitempty"`

	// Tests is the per-test result list. Raw JSON so replayed runs
	// reproduce the stored list exactly.
	Tests []json.RawMessage `json:"tests,omitempty"`

	// Leaderboard is the leaderboard entry list, raw for the same
	// reason.
	Leaderboard json.RawMessage `json:"leaderboard,omitempty"`
}

// SetScore sets the overall score.
func (r *Result) SetScore(score float64) {
	r.Score = &score
}

// TestResult is a single check's outcome in the platform's test shape.
type TestResult struct {
	Name       string         `json:"name,omitempty"`
	Number     string         `json:"number,omitempty"`
	Score      *float64       `json:"score,omitempty"`
	MaxScore   *float64       `json:"max_score,omitempty"`
	Status     string         `json:"status,omitempty"`
	Output     string         `json:"output,omitempty"`
	Tags       []string       `json:"tags,omitempty"`
	Visibility string         `json:"visibility,omitempty"`
	ExtraData  map[string]any `json:"extra_data,omitempty"`
}

// Raw marshals the test result for inclusion in a Result's test list.
func (t *TestResult) Raw() (json.RawMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal test result %q: %w", t.Name, err)
	}
	return data, nil
}

// LeaderboardEntry is one leaderboard item.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Order string `json:"order,omitempty"`
}

// MarshalLeaderboard converts entries to the raw leaderboard payload.
// Returns nil for an empty list so the field is omitted entirely.
func MarshalLeaderboard(entries []LeaderboardEntry) (json.RawMessage, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	return data, nil
}

// Write serializes the result to path. The file is truncated and
// rewritten; the platform reads it exactly once after the process
// exits.
func (r *Result) Write(path string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write results file %q: %w", path, err)
	}
	return nil
}
