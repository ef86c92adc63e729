package harness

import (
	"context"
	"fmt"
	"strings"

	"classhub/gradekeeper/pkg/results"
)

// RunCondition controls when a hook runs.
type RunCondition int

const (
	// Always runs the hook on every run.
	Always RunCondition = iota

	// PlatformOnly runs the hook only on the grading platform.
	PlatformOnly

	// LocalOnly runs the hook only on local runs.
	LocalOnly
)

func (c RunCondition) okay(local bool) bool {
	switch c {
	case PlatformOnly:
		return !local
	case LocalOnly:
		return local
	default:
		return true
	}
}

// TestFunc is the body of a single test. It reports its outcome
// through the Report; a returned error fails the test.
type TestFunc func(ctx context.Context, r *Report) error

// Test is one registered check.
type Test struct {
	// Name identifies the test to the student.
	Name string

	// Number orders the test in the platform UI ("1.2"). Optional.
	Number string

	// MaxScore is the points this test is worth.
	MaxScore float64

	// Visibility controls when this test's result becomes visible.
	// Empty uses the platform default.
	Visibility string

	// Tags label the test result.
	Tags []string

	// Run is the test body.
	Run TestFunc

	report *Report
}

// Report collects one test's outcome while it runs.
type Report struct {
	score  *float64
	status string
	output strings.Builder
}

// SetScore sets the points earned by this test.
func (r *Report) SetScore(score float64) {
	r.score = &score
}

// Score returns the points earned, nil when the test never scored.
func (r *Report) Score() *float64 {
	return r.score
}

// SetStatus overrides the pass/fail status ("passed", "failed").
func (r *Report) SetStatus(status string) {
	r.status = status
}

// Printf appends to the test's student-facing output.
func (r *Report) Printf(format string, args ...any) {
	fmt.Fprintf(&r.output, format, args...)
}

// Println appends a line to the test's student-facing output.
func (r *Report) Println(args ...any) {
	fmt.Fprintln(&r.output, args...)
}

// run executes the test and records its outcome. A returned error
// fails the test with a zero score unless the body scored it already.
func (t *Test) run(ctx context.Context) {
	t.report = &Report{}
	if t.Run == nil {
		return
	}
	if err := t.Run(ctx, t.report); err != nil {
		t.report.Printf("test failed: %v\n", err)
		if t.report.status == "" {
			t.report.status = "failed"
		}
		if t.report.score == nil {
			t.report.SetScore(0)
		}
	}
}

// result converts the recorded outcome to the platform test shape.
// Returns nil when the test never ran.
func (t *Test) result() *results.TestResult {
	if t.report == nil {
		return nil
	}
	res := &results.TestResult{
		Name:       t.Name,
		Number:     t.Number,
		Score:      t.report.score,
		Status:     t.report.status,
		Output:     t.report.output.String(),
		Tags:       t.Tags,
		Visibility: t.Visibility,
	}
	if t.MaxScore > 0 {
		max := t.MaxScore
		res.MaxScore = &max
	}
	return res
}

// HookFunc is a setup or teardown body. A returned error aborts the
// run and refunds the submission token.
type HookFunc func(ctx context.Context, h *Harness) error

// Hook is a registered setup or teardown.
type Hook struct {
	// Name identifies the hook in logs and error output.
	Name string

	// When controls whether the hook runs locally, on the platform,
	// or both.
	When RunCondition

	// Run is the hook body.
	Run HookFunc
}
