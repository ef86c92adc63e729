package harness

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"classhub/gradekeeper/pkg/archive"
	"classhub/gradekeeper/pkg/config"
	"classhub/gradekeeper/pkg/history"
	"classhub/gradekeeper/pkg/results"
	"classhub/gradekeeper/pkg/telemetry/metrics"
)

// Harness drives one grading run. Construct with New, register tests
// and hooks, then call Execute once. A Harness is not safe for
// concurrent use and must not be reused across runs.
type Harness struct {
	cfg    *config.Config
	logger *slog.Logger

	tests     []*Test
	setups    []Hook
	teardowns []Hook

	score            *float64
	output           strings.Builder
	visibility       string
	stdoutVisibility string
	extraData        map[string]any
	leaderboard      []results.LeaderboardEntry

	// ReverseTests emits test results in reverse registration order.
	// Tests still run in registration order.
	ReverseTests bool

	// ExportAfterEachTest rewrites the results file after every test,
	// so a run killed mid-way still leaves partial results behind.
	ExportAfterEachTest bool

	// UseRateLimitWhenLocal enforces the rate limit on local runs too.
	// By default local runs are graded unconditionally.
	UseRateLimitWhenLocal bool

	// ModifyResults, when set, gets the final payload just before it
	// is written.
	ModifyResults func(*results.Result)

	histStore history.Backend
	archStore archive.Store
	metrics   *metrics.Metrics

	local          bool
	startTime      time.Time
	welcomePrinted bool
}

// New creates a Harness for one grading run.
func New(cfg *config.Config) *Harness {
	return &Harness{
		cfg:                 cfg,
		logger:              slog.Default().With("component", "harness"),
		extraData:           map[string]any{},
		ExportAfterEachTest: true,
		local:               config.IsLocal(),
		startTime:           time.Now(),
	}
}

// UseHistory attaches a local history backend. Local runs read their
// submission history from it and record themselves back.
func (h *Harness) UseHistory(b history.Backend) {
	h.histStore = b
}

// UseArchive attaches a run archive. Completed runs are saved to it.
func (h *Harness) UseArchive(s archive.Store) {
	h.archStore = s
}

// UseMetrics attaches a metrics collector.
func (h *Harness) UseMetrics(m *metrics.Metrics) {
	h.metrics = m
}

// Local reports whether this run is outside the grading platform.
func (h *Harness) Local() bool {
	return h.local
}

// AddTest registers a test at the end of the run order.
func (h *Harness) AddTest(t *Test) {
	h.tests = append(h.tests, t)
}

// AddTestAt registers a test at the given position in the run order.
// An out-of-range index appends.
func (h *Harness) AddTestAt(index int, t *Test) {
	if index < 0 || index >= len(h.tests) {
		h.tests = append(h.tests, t)
		return
	}
	h.tests = append(h.tests[:index], append([]*Test{t}, h.tests[index:]...)...)
}

// CreateTest registers a new test from a name, a maximum score, and a
// body.
func (h *Harness) CreateTest(name string, maxScore float64, fn TestFunc) *Test {
	t := &Test{Name: name, MaxScore: maxScore, Run: fn}
	h.AddTest(t)
	return t
}

// AddSetup registers a setup hook. Setups run before any test; a
// failed setup aborts the run and refunds the submission token.
func (h *Harness) AddSetup(hook Hook) {
	h.setups = append(h.setups, hook)
}

// AddTeardown registers a teardown hook. Teardowns run after all
// tests; a failed teardown zeroes the score and refunds the token.
func (h *Harness) AddTeardown(hook Hook) {
	h.teardowns = append(h.teardowns, hook)
}

// SetScore sets the overall score, overriding per-test aggregation.
func (h *Harness) SetScore(score float64) {
	h.score = &score
}

// AddScore adds to the overall score, starting from zero when unset.
func (h *Harness) AddScore(delta float64) {
	if h.score == nil {
		h.score = new(float64)
	}
	*h.score += delta
}

// Score returns the aggregate score: the explicitly set score when
// there is one, otherwise the sum of per-test scores, otherwise nil.
func (h *Harness) Score() *float64 {
	if h.score != nil {
		return h.score
	}
	var sum float64
	scored := false
	for _, t := range h.tests {
		if t.report == nil || t.report.score == nil {
			continue
		}
		sum += *t.report.score
		scored = true
	}
	if scored {
		return &sum
	}
	return nil
}

// SetVisibility controls when the whole payload becomes visible.
func (h *Harness) SetVisibility(v string) {
	h.visibility = v
}

// SetStdoutVisibility controls when captured stdout becomes visible.
func (h *Harness) SetStdoutVisibility(v string) {
	h.stdoutVisibility = v
}

// Printf appends to the top-level student-facing output.
func (h *Harness) Printf(format string, args ...any) {
	fmt.Fprintf(&h.output, format, args...)
}

// Println appends a line to the top-level student-facing output.
func (h *Harness) Println(args ...any) {
	fmt.Fprintln(&h.output, args...)
}

// SetExtraData stores an extra_data value on the results payload.
func (h *Harness) SetExtraData(key string, value any) {
	h.extraData[key] = value
}

// AddLeaderboardItem adds or updates a leaderboard entry by name.
// An empty order keeps the existing one.
func (h *Harness) AddLeaderboardItem(name string, value any, order string) {
	for i := range h.leaderboard {
		if h.leaderboard[i].Name == name {
			h.leaderboard[i].Value = value
			if order != "" {
				h.leaderboard[i].Order = order
			}
			return
		}
	}
	h.leaderboard = append(h.leaderboard, results.LeaderboardEntry{
		Name:  name,
		Value: value,
		Order: order,
	})
}

// LeaderboardItem returns the entry with the given name, nil when
// absent.
func (h *Harness) LeaderboardItem(name string) *results.LeaderboardEntry {
	for i := range h.leaderboard {
		if h.leaderboard[i].Name == name {
			return &h.leaderboard[i]
		}
	}
	return nil
}

// RemoveLeaderboardItem removes the entry with the given name,
// reporting whether one existed.
func (h *Harness) RemoveLeaderboardItem(name string) bool {
	for i := range h.leaderboard {
		if h.leaderboard[i].Name == name {
			h.leaderboard = append(h.leaderboard[:i], h.leaderboard[i+1:]...)
			return true
		}
	}
	return false
}

// printWelcome prints the configured welcome message exactly once.
func (h *Harness) printWelcome() {
	if h.welcomePrinted {
		return
	}
	h.welcomePrinted = true
	if msg := h.cfg.Assignment.WelcomeMessage; msg != "" {
		fmt.Println(msg)
	}
}
