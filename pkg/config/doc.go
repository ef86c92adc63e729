// Package config loads and validates the harness configuration.
//
// Configuration comes from a YAML file, with defaults applied for
// anything unset and GRADEKEEPER_* environment variables overriding the
// file. The loading sequence is:
//
//  1. Parse YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
//
// Validation happens once, at startup. A rate limit with a capacity but
// a zero-length window is a configuration error here, not an
// always-deny limit at grading time.
package config
