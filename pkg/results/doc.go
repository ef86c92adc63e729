// Package results defines the results payload written for every grading
// run and the rehydrator that replays a prior run's payload when a
// submission is denied by the rate limit.
//
// The payload shape matches what the platform consumes from
// results.json: execution time, overall score, output text, visibility
// settings, extra data, a test list, and an optional leaderboard.
// Replayed test lists and leaderboards are carried as raw JSON so the
// replay is byte-for-byte, not a recomputation.
package results
