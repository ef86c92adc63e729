// Package harness orchestrates a grading run: test registration,
// setup and teardown hooks, rate limit evaluation, score aggregation,
// and emission of the results payload. A run always produces a
// results file, even when the harness itself fails.
package harness
