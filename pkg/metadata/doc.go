// Package metadata parses the platform's submission_metadata.json into
// the ordered submission history the rate limit engine consumes.
//
// The platform writes timestamps with a fixed-width timezone suffix
// (".000000-08:00", 13 characters) that is dropped before parsing; the
// remainder is a bare "2006-01-02T15:04:05". Records whose timestamp or
// results payload cannot be decoded are kept in the history, marked
// malformed, rather than dropped: the engine counts them against the
// token capacity, so a decode failure can never grant extra
// submissions.
//
// The history order is exactly the platform's order, oldest first.
package metadata
