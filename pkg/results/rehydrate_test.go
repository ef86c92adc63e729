package results

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"classhub/gradekeeper/pkg/ratelimit"
)

func floatPtr(f float64) *float64 { return &f }

func TestRehydrate_ReplaysLastSubmissionVerbatim(t *testing.T) {
	// Scenario: denial with pull_prev_run, last entry holds a score of 7
	// and a stored test list.
	storedTests := []json.RawMessage{
		json.RawMessage(`{"name":"test_add","score":4,"max_score":4}`),
		json.RawMessage(`{"name":"test_mul","score":3,"max_score":6}`),
	}
	history := []ratelimit.SubmissionRecord{
		{
			SubmittedAt: time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC),
			Counted:     true,
			Results: &ratelimit.StoredResult{
				Score: floatPtr(2),
				Tests: []json.RawMessage{json.RawMessage(`{"name":"old"}`)},
			},
		},
		{
			SubmittedAt: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
			Counted:     true,
			Results: &ratelimit.StoredResult{
				Score:       floatPtr(7),
				Tests:       storedTests,
				Leaderboard: json.RawMessage(`[{"name":"speed","value":1.5}]`),
			},
		},
	}

	r, err := Rehydrate(history)
	if err != nil {
		t.Fatalf("Rehydrate() error = %v", err)
	}
	if r.Score == nil || *r.Score != 7 {
		t.Errorf("Score = %v, want 7", r.Score)
	}
	if len(r.Tests) != 2 {
		t.Fatalf("len(Tests) = %d, want 2", len(r.Tests))
	}
	for i := range storedTests {
		if !bytes.Equal(r.Tests[i], storedTests[i]) {
			t.Errorf("Tests[%d] = %s, want %s", i, r.Tests[i], storedTests[i])
		}
	}
	if !bytes.Equal(r.Leaderboard, history[1].Results.Leaderboard) {
		t.Errorf("Leaderboard = %s, want %s", r.Leaderboard, history[1].Results.Leaderboard)
	}
	if got := r.ExtraData["sub_counts"]; got != 0 {
		t.Errorf("sub_counts = %v, want 0", got)
	}
}

func TestRehydrate_CopiesDoNotAliasHistory(t *testing.T) {
	stored := &ratelimit.StoredResult{
		Score: floatPtr(5),
		Tests: []json.RawMessage{json.RawMessage(`{"name":"t"}`)},
	}
	history := []ratelimit.SubmissionRecord{{Results: stored}}

	r, err := Rehydrate(history)
	if err != nil {
		t.Fatalf("Rehydrate() error = %v", err)
	}
	r.Tests[0][2] = 'X'
	if stored.Tests[0][2] == 'X' {
		t.Error("rehydrated test list aliases the stored history")
	}
}

func TestRehydrate_EmptyHistory(t *testing.T) {
	r, err := Rehydrate(nil)
	if !errors.Is(err, ErrRehydration) {
		t.Fatalf("error = %v, want ErrRehydration", err)
	}
	if r == nil {
		t.Fatal("expected fallback result alongside the error")
	}
	if r.Score == nil || *r.Score != 0 {
		t.Errorf("fallback Score = %v, want 0", r.Score)
	}
	if len(r.Tests) != 0 {
		t.Errorf("fallback Tests = %v, want empty", r.Tests)
	}
}

func TestRehydrate_MissingPayload(t *testing.T) {
	history := []ratelimit.SubmissionRecord{
		{SubmittedAt: time.Now(), Counted: true},
	}
	_, err := Rehydrate(history)
	if !errors.Is(err, ErrRehydration) {
		t.Errorf("error = %v, want ErrRehydration", err)
	}
}

func TestRehydrate_MissingTestList(t *testing.T) {
	history := []ratelimit.SubmissionRecord{
		{Results: &ratelimit.StoredResult{Score: floatPtr(3)}},
	}
	r, err := Rehydrate(history)
	if !errors.Is(err, ErrRehydration) {
		t.Fatalf("error = %v, want ErrRehydration", err)
	}
	if r.Score == nil || *r.Score != 0 {
		t.Errorf("fallback Score = %v, want 0 (not the stored score)", r.Score)
	}
}

func TestRehydrate_OnlyLastEntryConsidered(t *testing.T) {
	// Even when older entries have usable payloads, a broken last entry
	// is a rehydration failure.
	history := []ratelimit.SubmissionRecord{
		{Results: &ratelimit.StoredResult{
			Score: floatPtr(9),
			Tests: []json.RawMessage{json.RawMessage(`{"name":"ok"}`)},
		}},
		{Results: nil},
	}
	_, err := Rehydrate(history)
	if !errors.Is(err, ErrRehydration) {
		t.Errorf("error = %v, want ErrRehydration", err)
	}
}
