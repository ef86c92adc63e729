package harness

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"classhub/gradekeeper/pkg/archive"
	"classhub/gradekeeper/pkg/history"
	"classhub/gradekeeper/pkg/metadata"
	"classhub/gradekeeper/pkg/ratelimit"
	"classhub/gradekeeper/pkg/results"
)

// tokenRefundMessage is shown when a harness failure gives the
// submission token back.
const tokenRefundMessage = "[Rate Limit]: Since the autograder failed to run, you will not use up a token!"

// Execute runs the full grading flow: welcome message, rate limit
// evaluation, setups, tests, teardowns, score aggregation, and the
// results write. It always writes a results payload, falling back to
// a zero-score failure payload when the harness itself breaks.
//
// The returned Result is the payload that was written.
func (h *Harness) Execute(ctx context.Context) (res *results.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("grading run panicked", "panic", r)
			res = h.failSafe("An unexpected error occurred while trying to run the autograder. Please try again or contact a TA if this persists.")
			err = fmt.Errorf("grading run panicked: %v", r)
		}
	}()

	h.printWelcome()

	md, decision, evalErr := h.evaluate(ctx)
	if evalErr != nil {
		h.logger.Error("rate limit evaluation failed", "error", evalErr)
		return h.failSafe("An error occurred in the autograder's rate limit accounting. Please contact a TA to resolve this issue."), evalErr
	}

	if decision != nil && !decision.Allowed {
		return h.emitDenied(ctx, md, decision)
	}

	if !h.runHooks(ctx, h.setups, "setup") {
		return h.emitFailedRun(ctx)
	}
	h.runTests(ctx)
	if !h.runHooks(ctx, h.teardowns, "teardown") {
		return h.emitFailedRun(ctx)
	}

	if decision != nil {
		h.prependOutput(decision.Message)
	}
	return h.emit(ctx, nil, nil)
}

// evaluate loads the submission history and runs token accounting.
// The returned decision is nil when rate limiting is disabled or
// skipped.
func (h *Harness) evaluate(ctx context.Context) (*metadata.Metadata, *ratelimit.Decision, error) {
	md, err := h.loadMetadata(ctx)
	if err != nil {
		return nil, nil, err
	}
	h.extraData["id"] = md.SubmissionID

	cfg, err := h.cfg.RateLimit.Engine()
	if err != nil {
		return md, nil, err
	}
	if !cfg.Enabled() {
		return md, nil, nil
	}
	if h.local && !h.UseRateLimitWhenLocal {
		h.logger.Warn("rate limit configured but not enforced on a local run")
		return md, nil, nil
	}

	decision := ratelimit.Evaluate(md.CreatedAt, cfg, md.History)
	if h.metrics != nil {
		h.metrics.RecordEvaluation(decision.Allowed)
	}
	if decision.Allowed {
		h.extraData["sub_counts"] = 1
	} else {
		h.extraData["sub_counts"] = 0
	}
	h.logger.Info("rate limit evaluated",
		"allowed", decision.Allowed,
		"tokens_used", decision.TokensUsed,
		"submission_id", md.SubmissionID)
	return md, &decision, nil
}

// loadMetadata reads the platform metadata file. Local runs without
// one synthesize metadata from the attached history backend.
func (h *Harness) loadMetadata(ctx context.Context) (*metadata.Metadata, error) {
	md, err := metadata.Load(h.cfg.Paths.Metadata)
	if err == nil {
		return md, nil
	}
	if !errors.Is(err, metadata.ErrNoMetadata) {
		return nil, err
	}
	if !h.local {
		// On the platform a missing metadata file means the run cannot
		// be accounted.
		return nil, err
	}

	md = &metadata.Metadata{
		SubmissionID: "LOCAL",
		CreatedAt:    h.startTime,
	}
	if h.histStore != nil {
		entries, err := h.histStore.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load local history: %w", err)
		}
		md.History = history.Records(entries)
	}
	return md, nil
}

// emitDenied writes the payload for a rate limited run: either the
// prior submission replayed, or a zero score.
func (h *Harness) emitDenied(ctx context.Context, md *metadata.Metadata, decision *ratelimit.Decision) (*results.Result, error) {
	h.prependOutput(decision.Message)

	if !h.cfg.RateLimit.PullPrevRun {
		h.SetScore(0)
		return h.emit(ctx, []json.RawMessage{}, nil)
	}

	replay, err := results.Rehydrate(md.History)
	if h.metrics != nil {
		h.metrics.RecordRehydration(err == nil)
	}
	if err != nil {
		h.logger.Warn("could not replay previous submission", "error", err)
		h.Println("[ERROR]: Could not pull the data from your previous submission! This is probably due to it not having finished running!")
		h.SetScore(0)
		return h.emit(ctx, []json.RawMessage{}, nil)
	}

	if replay.Score != nil {
		h.SetScore(*replay.Score)
	}
	return h.emit(ctx, replay.Tests, replay.Leaderboard)
}

// emitFailedRun finalizes a run aborted by a failed setup or
// teardown: score zero and, when a token was consumed, a refund.
func (h *Harness) emitFailedRun(ctx context.Context) (*results.Result, error) {
	h.SetScore(0)
	if _, ok := h.extraData["sub_counts"]; ok {
		h.Println(tokenRefundMessage)
		h.extraData["sub_counts"] = 0
	}
	return h.emit(ctx, nil, nil)
}

// runHooks executes setups or teardowns in order. Returns false on the
// first failure.
func (h *Harness) runHooks(ctx context.Context, hooks []Hook, kind string) bool {
	for _, hook := range hooks {
		if !hook.When.okay(h.local) {
			continue
		}
		if hook.Run == nil {
			continue
		}
		if err := hook.Run(ctx, h); err != nil {
			h.logger.Error("hook failed", "kind", kind, "name", hook.Name, "error", err)
			h.Printf("[Error]: An error occurred in the %s of the Autograder!\n", kind)
			return false
		}
	}
	return true
}

// runTests executes every registered test in registration order.
func (h *Harness) runTests(ctx context.Context) {
	for _, t := range h.tests {
		t.run(ctx)
		if h.metrics != nil {
			h.metrics.RecordTest(t.report.status != "failed")
		}
		if h.ExportAfterEachTest {
			if err := h.writePartial(); err != nil {
				h.logger.Warn("partial results write failed", "error", err)
			}
		}
	}
}

// writePartial rewrites the results file mid-run, without the
// missing-score warning.
func (h *Harness) writePartial() error {
	res := h.buildResult(nil, nil, false)
	return res.Write(h.cfg.Paths.Results)
}

// buildResult assembles the results payload. testOverride, when
// non-nil, replaces the executed test list (an empty non-nil slice
// emits no tests); leaderboardOverride works the same way.
func (h *Harness) buildResult(testOverride []json.RawMessage, leaderboardOverride json.RawMessage, warnMissingScore bool) *results.Result {
	res := &results.Result{
		ExecutionTime:    time.Since(h.startTime).Seconds(),
		Visibility:       h.visibility,
		StdoutVisibility: h.stdoutVisibility,
	}

	if testOverride != nil {
		if len(testOverride) > 0 {
			res.Tests = testOverride
		}
	} else {
		res.Tests = h.collectTests()
	}

	switch {
	case h.score != nil:
		res.SetScore(*h.score)
	case h.testsCarryScore(res.Tests):
		// Per-test scores carry the grade.
	default:
		res.SetScore(0)
		if warnMissingScore {
			h.Println("This autograder does not set the main score or have any tests which give points!")
		}
	}

	if leaderboardOverride != nil {
		res.Leaderboard = leaderboardOverride
	} else if len(h.leaderboard) > 0 {
		lb, err := results.MarshalLeaderboard(h.leaderboard)
		if err != nil {
			h.logger.Error("leaderboard marshal failed", "error", err)
		} else {
			res.Leaderboard = lb
		}
	}

	res.Output = h.output.String()
	if len(h.extraData) > 0 {
		res.ExtraData = h.extraData
	}

	if h.ModifyResults != nil {
		h.ModifyResults(res)
	}
	return res
}

// collectTests marshals executed tests in emission order.
func (h *Harness) collectTests() []json.RawMessage {
	tests := make([]json.RawMessage, 0, len(h.tests))
	ordered := h.tests
	if h.ReverseTests {
		ordered = make([]*Test, len(h.tests))
		for i, t := range h.tests {
			ordered[len(h.tests)-1-i] = t
		}
	}
	for _, t := range ordered {
		tr := t.result()
		if tr == nil {
			continue
		}
		raw, err := tr.Raw()
		if err != nil {
			h.logger.Error("test result marshal failed", "test", t.Name, "error", err)
			continue
		}
		tests = append(tests, raw)
	}
	if len(tests) == 0 {
		return nil
	}
	return tests
}

// testsCarryScore reports whether any emitted test carries a score
// field.
func (h *Harness) testsCarryScore(tests []json.RawMessage) bool {
	for _, raw := range tests {
		var probe struct {
			Score *float64 `json:"score"`
		}
		if err := json.Unmarshal(raw, &probe); err == nil && probe.Score != nil {
			return true
		}
	}
	return false
}

// emit writes the final payload, records the run locally, and
// observes run metrics.
func (h *Harness) emit(ctx context.Context, testOverride []json.RawMessage, leaderboardOverride json.RawMessage) (*results.Result, error) {
	res := h.buildResult(testOverride, leaderboardOverride, true)

	if err := res.Write(h.cfg.Paths.Results); err != nil {
		return res, err
	}

	h.record(ctx, res)
	if h.metrics != nil {
		h.metrics.ObserveRunDuration(res.ExecutionTime)
	}
	h.logger.Info("grading run complete",
		"execution_time", res.ExecutionTime,
		"tests", len(res.Tests))
	return res, nil
}

// record appends the run to the local history backend and the archive.
// Recording failures are logged, never fatal: the results file is
// already on disk.
func (h *Harness) record(ctx context.Context, res *results.Result) {
	runID := uuid.NewString()
	counted := false
	if v, ok := h.extraData["sub_counts"]; ok {
		if n, ok := v.(int); ok {
			counted = n == 1
		}
	}

	if h.histStore != nil && h.local {
		entry := &history.Entry{
			RunID:       runID,
			SubmittedAt: h.startTime,
			Counted:     counted,
			Score:       res.Score,
			Tests:       res.Tests,
			Leaderboard: res.Leaderboard,
		}
		if err := h.histStore.Append(ctx, entry); err != nil {
			h.logger.Warn("failed to record run in local history", "error", err)
		}
	}

	if h.archStore != nil {
		payload, err := json.Marshal(res)
		if err != nil {
			h.logger.Warn("failed to marshal run for archiving", "error", err)
			return
		}
		run := &archive.Run{
			RunID:      runID,
			Assignment: h.cfg.Assignment.Name,
			StartedAt:  h.startTime,
			Counted:    counted,
			Score:      res.Score,
			Payload:    payload,
		}
		if err := h.archStore.Save(ctx, run); err != nil {
			h.logger.Warn("failed to archive run", "error", err)
		}
	}
}

// failSafe writes a zero-score payload with an explanation. Used when
// the harness itself breaks; the platform must always find a results
// file.
func (h *Harness) failSafe(message string) *results.Result {
	res := &results.Result{
		ExecutionTime: time.Since(h.startTime).Seconds(),
		Output:        message,
	}
	res.SetScore(0)
	if len(h.extraData) > 0 {
		h.extraData["sub_counts"] = 0
		res.ExtraData = h.extraData
	}
	if err := res.Write(h.cfg.Paths.Results); err != nil {
		h.logger.Error("failed to write failure results", "error", err)
	}
	return res
}

// prependOutput puts text ahead of everything already printed.
func (h *Harness) prependOutput(text string) {
	existing := h.output.String()
	h.output.Reset()
	h.output.WriteString(text)
	h.output.WriteString(existing)
}
