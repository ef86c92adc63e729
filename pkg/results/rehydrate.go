package results

import (
	"encoding/json"
	"errors"

	"classhub/gradekeeper/pkg/ratelimit"
)

// ErrRehydration is returned when the most recent submission has no
// usable stored results, typically because the previous run never
// finished. Callers recover with the zero-score fallback Result that
// accompanies the error; the failure is explained to the student, never
// fatal to the process.
var ErrRehydration = errors.New("previous submission has no stored results to replay")

// Rehydrate replays the most recent prior submission's stored results
// instead of grading fresh. The history must be ordered oldest first;
// only the last entry is considered, regardless of whether it was
// counted.
//
// The returned Result carries the stored score, test list, and
// leaderboard verbatim, with sub_counts set to 0 so future evaluations
// know this run consumed no token. On ErrRehydration a zero-score
// Result with an empty test list is returned alongside the error.
func Rehydrate(history []ratelimit.SubmissionRecord) (*Result, error) {
	fallback := func() *Result {
		r := &Result{ExtraData: map[string]any{"sub_counts": 0}}
		r.SetScore(0)
		return r
	}

	if len(history) == 0 {
		return fallback(), ErrRehydration
	}

	last := history[len(history)-1]
	if last.Results == nil || last.Results.Tests == nil {
		return fallback(), ErrRehydration
	}

	r := &Result{
		Score:       last.Results.Score,
		Tests:       cloneRaw(last.Results.Tests),
		Leaderboard: append(json.RawMessage(nil), last.Results.Leaderboard...),
		ExtraData:   map[string]any{"sub_counts": 0},
	}
	if len(r.Leaderboard) == 0 {
		r.Leaderboard = nil
	}
	return r, nil
}

// cloneRaw copies the stored test list so the replayed payload cannot
// alias the parsed history.
func cloneRaw(tests []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(tests))
	for i, t := range tests {
		out[i] = append(json.RawMessage(nil), t...)
	}
	return out
}
