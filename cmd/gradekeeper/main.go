// Gradekeeper is an autograder harness for Gradescope-style platforms.
//
// It runs the configured checks against a student submission and writes
// a results payload, subject to a submission rate limit: each graded
// submission consumes a token, and tokens regenerate a fixed window
// after the submission that consumed them.
//
// Usage:
//
//	# Grade the submission once
//	gradekeeper run
//
//	# Grade with a custom configuration file
//	gradekeeper run --config /autograder/source/gradekeeper.yaml
//
//	# Re-grade locally whenever the submission changes
//	gradekeeper watch
//
//	# Inspect archived runs
//	gradekeeper history list
//	gradekeeper history show <run-id>
//
//	# Validate the configuration
//	gradekeeper validate
//
//	# Show version information
//	gradekeeper version
package main

func main() {
	Execute()
}
