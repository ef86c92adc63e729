package ratelimit

import (
	"encoding/json"
	"time"
)

// StoredResult is the opaque results payload a prior submission carried.
// Tests and Leaderboard are kept as raw JSON so a rehydrated run can
// replay them byte for byte without understanding their shape.
type StoredResult struct {
	// Score is the overall score of the prior run, nil when the platform
	// recorded none.
	Score *float64

	// Tests is the prior run's test list, verbatim.
	Tests []json.RawMessage

	// Leaderboard is the prior run's leaderboard, verbatim. Nil when the
	// assignment has no leaderboard.
	Leaderboard json.RawMessage
}

// SubmissionRecord is one historical submission as recorded by the
// platform. Records are immutable once parsed; the history slice they
// arrive in is ordered oldest to newest and must not be re-sorted.
type SubmissionRecord struct {
	// SubmittedAt is when the submission was made, parsed from the
	// platform timestamp with its timezone suffix dropped.
	SubmittedAt time.Time

	// Counted reports whether the submission consumed a token
	// (extra_data.sub_counts == 1 in the stored payload).
	Counted bool

	// SubmissionID is the platform's identifier for the submission.
	// May be empty when the stored payload carried none.
	SubmissionID string

	// Results is the stored results payload, nil when the prior run
	// never produced one.
	Results *StoredResult

	// Malformed marks a record whose payload or timestamp could not be
	// decoded. The ledger counts malformed in-window records as having
	// consumed a token, erring toward under-granting.
	Malformed bool
}

// Config is the rate limit configuration, constructed once at startup
// and never mutated.
type Config struct {
	// Tokens is the maximum number of graded submissions inside any
	// window-sized period. Nil disables rate limiting entirely.
	Tokens *int

	// Window is the token regeneration window.
	Window TimeWindow

	// ResetTime is an administrative floor: submissions strictly before
	// it are disregarded entirely, independent of the window. Nil means
	// no floor.
	ResetTime *time.Time

	// ExcludeSubmissionIDs lists submission ids that never count against
	// the capacity, even when recorded as counted.
	ExcludeSubmissionIDs []string

	// PullPreviousRun replays the last graded result on denial instead
	// of failing with a zero score.
	PullPreviousRun bool
}

// Enabled reports whether rate limiting is configured at all.
func (c Config) Enabled() bool {
	return c.Tokens != nil
}

// Validate rejects configurations that could never grant a token.
func (c Config) Validate() error {
	if c.Tokens == nil {
		return nil
	}
	if *c.Tokens < 1 {
		return ErrNonPositiveTokens
	}
	if c.Window.Seconds < 0 || c.Window.Minutes < 0 || c.Window.Hours < 0 || c.Window.Days < 0 {
		return ErrNegativeWindow
	}
	if c.Window.IsZero() {
		return ErrZeroWindow
	}
	return nil
}

func (c Config) excluded(id string) bool {
	if id == "" {
		return false
	}
	for _, e := range c.ExcludeSubmissionIDs {
		if e == id {
			return true
		}
	}
	return false
}

// Decision is the outcome of evaluating one submission against the
// configured rate limit. It is produced once per evaluation and not
// mutated afterward.
type Decision struct {
	// Allowed reports whether the current submission may consume a
	// token and be graded.
	Allowed bool

	// TokensUsed is the count reported to the student. When the
	// submission is allowed it includes the current submission; when
	// denied it is the number of tokens already consumed.
	TokensUsed int

	// OldestCounted is the timestamp of the oldest counted submission
	// inside the window, nil when no counted submission is in-window.
	OldestCounted *time.Time

	// NextRegen is when the next token regenerates: the oldest counted
	// submission plus the window. On a grant with no prior counted
	// submissions it is the current submission plus the window.
	NextRegen *time.Time

	// Message is the student-facing explanation of the decision.
	Message string
}
