// Package ratelimit implements token accounting for graded submissions.
//
// # Overview
//
// Each graded submission consumes one token. Tokens regenerate after a
// configurable rolling window, so a student with a capacity of N tokens
// can have at most N graded submissions inside any window-sized period.
// The package decides, for the submission currently being evaluated,
// whether a token is available:
//
//   - TimeWindow: the regeneration window as seconds/minutes/hours/days
//   - SubmissionRecord: one prior submission with its recorded outcome
//   - Config: capacity, window, reset floor, exclusions
//   - Evaluate: the accounting function producing a Decision
//
// # Purity
//
// Evaluate is a pure function of (now, config, history). It holds no
// state between calls, performs no I/O, and calling it twice with the
// same inputs yields the same Decision. Any caching of "already decided
// for this run" belongs to the caller.
//
// # History ordering
//
// Callers must supply history oldest first, in the order the platform
// recorded it. The oldest counted submission (which determines when the
// next token regenerates) is the first counted record encountered, so
// re-sorting or reversing the history changes the answer. This is a
// precondition of the interface, not an implementation detail.
package ratelimit
