package harness

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"classhub/gradekeeper/pkg/config"
	"classhub/gradekeeper/pkg/history"
	"classhub/gradekeeper/pkg/results"
)

// sampleMetadata is a platform metadata document with two counted
// submissions 20 and 30 minutes before the current one.
const sampleMetadata = `{
	"id": 12345,
	"created_at": "2026-03-14T10:00:00.000000-07:00",
	"previous_submissions": [
		{
			"submission_time": "2026-03-14T09:30:00.000000-07:00",
			"score": 5.0,
			"results": {
				"extra_data": {"id": "s1", "sub_counts": 1},
				"score": 5.0,
				"tests": [{"name": "t1", "score": 5.0}]
			}
		},
		{
			"submission_time": "2026-03-14T09:40:00.000000-07:00",
			"score": 7.0,
			"results": {
				"extra_data": {"id": "s2", "sub_counts": 1},
				"score": 6.5,
				"tests": [{"name": "t1", "score": 7.0}],
				"leaderboard": [{"name": "speed", "value": 3}]
			}
		}
	]
}`

func writeMetadata(t *testing.T, cfg *config.Config, doc string) {
	t.Helper()
	if err := os.WriteFile(cfg.Paths.Metadata, []byte(doc), 0o644); err != nil {
		t.Fatalf("writing metadata fixture: %v", err)
	}
}

func readResults(t *testing.T, cfg *config.Config) *results.Result {
	t.Helper()
	data, err := os.ReadFile(cfg.Paths.Results)
	if err != nil {
		t.Fatalf("reading results file: %v", err)
	}
	var res results.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("parsing results file: %v", err)
	}
	return &res
}

func limitedConfig(t *testing.T, tokens int, pullPrev bool) *config.Config {
	cfg := testConfig(t)
	cfg.RateLimit.Tokens = &tokens
	cfg.RateLimit.Hours = 1
	cfg.RateLimit.PullPrevRun = pullPrev
	return cfg
}

func TestExecute_NoRateLimit(t *testing.T) {
	cfg := testConfig(t)
	h := New(cfg)
	h.CreateTest("adds", 5, func(ctx context.Context, r *Report) error {
		r.SetScore(5)
		return nil
	})
	h.CreateTest("subtracts", 5, func(ctx context.Context, r *Report) error {
		r.SetScore(2.5)
		return nil
	})

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Score != nil {
		t.Errorf("Score = %v, want omitted when tests carry the grade", res.Score)
	}
	if len(res.Tests) != 2 {
		t.Fatalf("len(Tests) = %d, want 2", len(res.Tests))
	}

	written := readResults(t, cfg)
	if len(written.Tests) != 2 {
		t.Errorf("written Tests = %d, want 2", len(written.Tests))
	}
	if written.ExecutionTime < 0 {
		t.Errorf("ExecutionTime = %v", written.ExecutionTime)
	}
}

func TestExecute_AllowedConsumesToken(t *testing.T) {
	cfg := limitedConfig(t, 3, false)
	h := New(cfg)
	h.UseRateLimitWhenLocal = true
	writeMetadata(t, cfg, sampleMetadata)

	h.CreateTest("t", 5, func(ctx context.Context, r *Report) error {
		r.SetScore(5)
		return nil
	})

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if got := res.ExtraData["sub_counts"]; got != 1 {
		t.Errorf("sub_counts = %v, want 1", got)
	}
	if got := res.ExtraData["id"]; got != "12345" {
		t.Errorf("extra_data id = %v, want 12345", got)
	}
	if !strings.HasPrefix(res.Output, "[Rate Limit]: Students can get up to 3 graded submissions") {
		t.Errorf("output should lead with the rate limit message, got %q", res.Output)
	}
	if !strings.Contains(res.Output, "you have had 3 graded submissions") {
		t.Errorf("output should count the current submission, got %q", res.Output)
	}
	if len(res.Tests) != 1 {
		t.Errorf("len(Tests) = %d, want 1", len(res.Tests))
	}
}

func TestExecute_DeniedWithoutReplayScoresZero(t *testing.T) {
	cfg := limitedConfig(t, 2, false)
	h := New(cfg)
	h.UseRateLimitWhenLocal = true
	writeMetadata(t, cfg, sampleMetadata)

	// This test must never run.
	ran := false
	h.CreateTest("t", 5, func(ctx context.Context, r *Report) error {
		ran = true
		return nil
	})

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ran {
		t.Error("a denied run must not execute tests")
	}
	if res.Score == nil || *res.Score != 0 {
		t.Errorf("Score = %v, want 0", res.Score)
	}
	if got := res.ExtraData["sub_counts"]; got != 0 {
		t.Errorf("sub_counts = %v, want 0", got)
	}
	if len(res.Tests) != 0 {
		t.Errorf("len(Tests) = %d, want 0", len(res.Tests))
	}
	if !strings.Contains(res.Output, "this submission will not count as a graded submission") {
		t.Errorf("output missing denial message: %q", res.Output)
	}
}

func TestExecute_DeniedWithReplayEmitsPriorResults(t *testing.T) {
	cfg := limitedConfig(t, 2, true)
	h := New(cfg)
	h.UseRateLimitWhenLocal = true
	writeMetadata(t, cfg, sampleMetadata)

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// The submission-level score of the last prior submission wins
	// over its stored payload copy.
	if res.Score == nil || *res.Score != 7 {
		t.Errorf("Score = %v, want 7", res.Score)
	}
	if len(res.Tests) != 1 {
		t.Fatalf("len(Tests) = %d, want 1", len(res.Tests))
	}
	var tst struct {
		Name  string  `json:"name"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal(res.Tests[0], &tst); err != nil {
		t.Fatalf("parsing replayed test: %v", err)
	}
	if tst.Name != "t1" || tst.Score != 7 {
		t.Errorf("replayed test = %+v", tst)
	}
	if res.Leaderboard == nil {
		t.Error("replayed leaderboard missing")
	}
	if !strings.Contains(res.Output, "results of your last graded submission are being displayed") {
		t.Errorf("output missing replay notice: %q", res.Output)
	}
	if got := res.ExtraData["sub_counts"]; got != 0 {
		t.Errorf("sub_counts = %v, want 0", got)
	}
}

func TestExecute_ReplayFallbackWhenPriorRunUnfinished(t *testing.T) {
	cfg := limitedConfig(t, 1, true)
	h := New(cfg)
	h.UseRateLimitWhenLocal = true
	writeMetadata(t, cfg, `{
		"id": 1,
		"created_at": "2026-03-14T10:00:00.000000-07:00",
		"previous_submissions": [
			{
				"submission_time": "2026-03-14T09:40:00.000000-07:00",
				"results": {"extra_data": {"id": "s1", "sub_counts": 1}}
			}
		]
	}`)

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Score == nil || *res.Score != 0 {
		t.Errorf("Score = %v, want 0", res.Score)
	}
	if !strings.Contains(res.Output, "Could not pull the data from your previous submission") {
		t.Errorf("output missing replay failure notice: %q", res.Output)
	}
}

func TestExecute_FailedSetupRefundsToken(t *testing.T) {
	cfg := limitedConfig(t, 3, false)
	h := New(cfg)
	h.UseRateLimitWhenLocal = true
	writeMetadata(t, cfg, sampleMetadata)

	ran := false
	h.CreateTest("t", 5, func(ctx context.Context, r *Report) error {
		ran = true
		return nil
	})
	h.AddSetup(Hook{
		Name: "compile",
		Run: func(ctx context.Context, h *Harness) error {
			return context.DeadlineExceeded
		},
	})

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ran {
		t.Error("tests must not run after a failed setup")
	}
	if res.Score == nil || *res.Score != 0 {
		t.Errorf("Score = %v, want 0", res.Score)
	}
	if got := res.ExtraData["sub_counts"]; got != 0 {
		t.Errorf("sub_counts = %v, want 0 after refund", got)
	}
	if !strings.Contains(res.Output, "you will not use up a token") {
		t.Errorf("output missing refund notice: %q", res.Output)
	}
	if !strings.Contains(res.Output, "error occurred in the setup") {
		t.Errorf("output missing setup failure notice: %q", res.Output)
	}
}

func TestExecute_FailedTeardownRefundsToken(t *testing.T) {
	cfg := limitedConfig(t, 3, false)
	h := New(cfg)
	h.UseRateLimitWhenLocal = true
	writeMetadata(t, cfg, sampleMetadata)

	h.CreateTest("t", 5, func(ctx context.Context, r *Report) error {
		r.SetScore(5)
		return nil
	})
	h.AddTeardown(Hook{
		Name: "cleanup",
		Run: func(ctx context.Context, h *Harness) error {
			return context.DeadlineExceeded
		},
	})

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Score == nil || *res.Score != 0 {
		t.Errorf("Score = %v, want 0 after failed teardown", res.Score)
	}
	if got := res.ExtraData["sub_counts"]; got != 0 {
		t.Errorf("sub_counts = %v, want 0 after refund", got)
	}
}

func TestExecute_MissingScoreWarns(t *testing.T) {
	cfg := testConfig(t)
	h := New(cfg)
	h.CreateTest("unscored", 0, func(ctx context.Context, r *Report) error {
		r.Println("ran fine")
		return nil
	})

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Score == nil || *res.Score != 0 {
		t.Errorf("Score = %v, want 0", res.Score)
	}
	if !strings.Contains(res.Output, "does not set the main score") {
		t.Errorf("output missing score warning: %q", res.Output)
	}
}

func TestExecute_PanicWritesFailurePayload(t *testing.T) {
	cfg := testConfig(t)
	h := New(cfg)
	h.CreateTest("explodes", 5, func(ctx context.Context, r *Report) error {
		panic("boom")
	})

	res, err := h.Execute(context.Background())
	if err == nil {
		t.Fatal("Execute() should report the panic")
	}
	if res == nil || res.Score == nil || *res.Score != 0 {
		t.Fatalf("failure payload = %+v, want zero score", res)
	}

	written := readResults(t, cfg)
	if written.Score == nil || *written.Score != 0 {
		t.Error("failure payload not written to disk")
	}
}

func TestExecute_LocalHistoryRoundTrip(t *testing.T) {
	cfg := limitedConfig(t, 2, false)
	backend := history.NewMemoryBackend()
	ctx := context.Background()

	score := 4.0
	for i := 0; i < 2; i++ {
		err := backend.Append(ctx, &history.Entry{
			RunID:       "prior",
			SubmittedAt: time.Now().Add(-10 * time.Minute),
			Counted:     true,
			Score:       &score,
			Tests:       []json.RawMessage{json.RawMessage(`{"name":"t1","score":4}`)},
		})
		if err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	h := New(cfg)
	h.local = true
	h.UseRateLimitWhenLocal = true
	h.UseHistory(backend)

	res, err := h.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Score == nil || *res.Score != 0 {
		t.Errorf("Score = %v, want 0 (denied by local history)", res.Score)
	}
	if got := res.ExtraData["id"]; got != "LOCAL" {
		t.Errorf("extra_data id = %v, want LOCAL", got)
	}

	// The denied run is recorded back as uncounted.
	entries, err := backend.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len(entries) = %d, want 3", len(entries))
	}
	if entries[2].Counted {
		t.Error("denied run must be recorded as uncounted")
	}
}

func TestExecute_ReverseTestsEmissionOrder(t *testing.T) {
	cfg := testConfig(t)
	h := New(cfg)
	h.ReverseTests = true
	order := []string{}
	for _, name := range []string{"a", "b", "c"} {
		name := name
		h.CreateTest(name, 1, func(ctx context.Context, r *Report) error {
			order = append(order, name)
			r.SetScore(1)
			return nil
		})
	}

	res, err := h.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	// Tests run in registration order but are emitted reversed.
	if order[0] != "a" || order[2] != "c" {
		t.Errorf("run order = %v, want registration order", order)
	}
	var first struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(res.Tests[0], &first); err != nil {
		t.Fatalf("parsing first test: %v", err)
	}
	if first.Name != "c" {
		t.Errorf("first emitted test = %q, want c", first.Name)
	}
}
