package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestResult_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.json")

	r := &Result{
		ExecutionTime: 1.25,
		Output:        "well done",
		ExtraData:     map[string]any{"sub_counts": 1, "id": "abc123"},
	}
	r.SetScore(10)

	tr := &TestResult{Name: "test_add", Score: floatPtr(10), MaxScore: floatPtr(10)}
	raw, err := tr.Raw()
	if err != nil {
		t.Fatalf("Raw() error = %v", err)
	}
	r.Tests = append(r.Tests, raw)

	if err := r.Write(path); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading results file: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("results file is not valid JSON: %v", err)
	}
	if decoded["score"] != 10.0 {
		t.Errorf("score = %v, want 10", decoded["score"])
	}
	if decoded["output"] != "well done" {
		t.Errorf("output = %v, want %q", decoded["output"], "well done")
	}
	tests, ok := decoded["tests"].([]any)
	if !ok || len(tests) != 1 {
		t.Fatalf("tests = %v, want one entry", decoded["tests"])
	}
}

func TestResult_OmitsEmptyFields(t *testing.T) {
	data, err := json.Marshal(&Result{ExecutionTime: 0.5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"score", "output", "tests", "leaderboard", "extra_data", "visibility"} {
		if _, present := decoded[key]; present {
			t.Errorf("expected %q to be omitted when unset", key)
		}
	}
}

func TestMarshalLeaderboard(t *testing.T) {
	raw, err := MarshalLeaderboard(nil)
	if err != nil {
		t.Fatalf("MarshalLeaderboard(nil) error = %v", err)
	}
	if raw != nil {
		t.Errorf("expected nil payload for empty leaderboard, got %s", raw)
	}

	raw, err = MarshalLeaderboard([]LeaderboardEntry{{Name: "speed", Value: 2.0, Order: "asc"}})
	if err != nil {
		t.Fatalf("MarshalLeaderboard() error = %v", err)
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "speed" || entries[0].Order != "asc" {
		t.Errorf("round trip = %+v", entries)
	}
}
