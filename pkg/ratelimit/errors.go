package ratelimit

import "errors"

var (
	// ErrZeroWindow is returned when a token capacity is configured with
	// a window that totals zero seconds. Such a configuration would deny
	// every submission forever, so it is rejected at construction rather
	// than silently enforced.
	ErrZeroWindow = errors.New("rate limit window totals zero seconds")

	// ErrNonPositiveTokens is returned when the configured token
	// capacity is zero or negative.
	ErrNonPositiveTokens = errors.New("token capacity must be at least 1")

	// ErrNegativeWindow is returned when any window component is
	// negative.
	ErrNegativeWindow = errors.New("window components must be non-negative")
)
