package metadata

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleMetadata = `{
  "id": 123456,
  "created_at": "2026-03-14T12:00:00.000000-07:00",
  "previous_submissions": [
    {
      "submission_time": "2026-03-14T09:30:00.000000-07:00",
      "score": 7.0,
      "results": {
        "score": 7.0,
        "extra_data": {"id": 111, "sub_counts": 1},
        "tests": [{"name": "test_add", "score": 7, "max_score": 10}],
        "leaderboard": null
      }
    },
    {
      "submission_time": "2026-03-14T10:15:00.000000-07:00",
      "results": {
        "extra_data": {"id": "222", "sub_counts": 0},
        "tests": []
      }
    }
  ]
}`

func TestParse(t *testing.T) {
	md, err := Parse([]byte(sampleMetadata))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if md.SubmissionID != "123456" {
		t.Errorf("SubmissionID = %q, want %q", md.SubmissionID, "123456")
	}
	want := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	if !md.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", md.CreatedAt, want)
	}
	if len(md.History) != 2 {
		t.Fatalf("len(History) = %d, want 2", len(md.History))
	}

	first := md.History[0]
	if !first.Counted {
		t.Error("first record should be counted (sub_counts=1)")
	}
	if first.SubmissionID != "111" {
		t.Errorf("first SubmissionID = %q, want %q", first.SubmissionID, "111")
	}
	if first.Malformed {
		t.Error("first record should not be malformed")
	}
	if first.Results == nil || first.Results.Score == nil || *first.Results.Score != 7 {
		t.Errorf("first stored score = %+v, want 7", first.Results)
	}
	if len(first.Results.Tests) != 1 {
		t.Errorf("first stored tests = %d entries, want 1", len(first.Results.Tests))
	}

	second := md.History[1]
	if second.Counted {
		t.Error("second record should not be counted (sub_counts=0)")
	}
	if second.SubmissionID != "222" {
		t.Errorf("second SubmissionID = %q, want %q", second.SubmissionID, "222")
	}

	// Order must be exactly the platform's order, oldest first.
	if !md.History[0].SubmittedAt.Before(md.History[1].SubmittedAt) {
		t.Error("history order not preserved")
	}
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2018-11-29T16:15:00.000000-08:00")
	if err != nil {
		t.Fatalf("ParseTime() error = %v", err)
	}
	want := time.Date(2018, 11, 29, 16, 15, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseTime() = %v, want %v", got, want)
	}

	if _, err := ParseTime("short"); err == nil {
		t.Error("expected error for timestamp shorter than the timezone suffix")
	}
	if _, err := ParseTime("garbage-but-long-enough-to-truncate"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestParse_MalformedRecords(t *testing.T) {
	tests := []struct {
		name       string
		submission string
	}{
		{
			"unparseable timestamp",
			`{"submission_time": "not-a-time-000000-08:00", "results": {"extra_data": {"sub_counts": 1}, "tests": []}}`,
		},
		{
			"results not an object",
			`{"submission_time": "2026-03-14T09:00:00.000000-07:00", "results": [1, 2]}`,
		},
		{
			"missing extra_data",
			`{"submission_time": "2026-03-14T09:00:00.000000-07:00", "results": {"tests": []}}`,
		},
		{
			"missing sub_counts",
			`{"submission_time": "2026-03-14T09:00:00.000000-07:00", "results": {"extra_data": {"id": 1}, "tests": []}}`,
		},
		{
			"sub_counts wrong type",
			`{"submission_time": "2026-03-14T09:00:00.000000-07:00", "results": {"extra_data": {"sub_counts": "yes"}, "tests": []}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"id": 1, "created_at": "2026-03-14T12:00:00.000000-07:00", "previous_submissions": [` + tt.submission + `]}`
			md, err := Parse([]byte(doc))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if len(md.History) != 1 {
				t.Fatalf("malformed record must stay in the history, got %d records", len(md.History))
			}
			if !md.History[0].Malformed {
				t.Error("expected record to be marked malformed")
			}
		})
	}
}

func TestParse_MissingResultsPayload(t *testing.T) {
	doc := `{"id": 1, "created_at": "2026-03-14T12:00:00.000000-07:00", "previous_submissions": [
		{"submission_time": "2026-03-14T09:00:00.000000-07:00"}
	]}`
	md, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rec := md.History[0]
	if rec.Malformed {
		t.Error("a record without a payload is absent, not malformed")
	}
	if rec.Results != nil {
		t.Error("expected nil stored results")
	}
}

func TestParse_SubmissionScoreWinsOverStoredScore(t *testing.T) {
	doc := `{"id": 1, "created_at": "2026-03-14T12:00:00.000000-07:00", "previous_submissions": [
		{"submission_time": "2026-03-14T09:00:00.000000-07:00", "score": 9.5,
		 "results": {"score": 4.0, "extra_data": {"sub_counts": 1}, "tests": []}}
	]}`
	md, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	rec := md.History[0]
	if rec.Results.Score == nil || *rec.Results.Score != 9.5 {
		t.Errorf("stored score = %v, want the submission-level 9.5", rec.Results.Score)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !errors.Is(err, ErrNoMetadata) {
		t.Errorf("error = %v, want ErrNoMetadata", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "submission_metadata.json")
	if err := os.WriteFile(path, []byte(sampleMetadata), 0o644); err != nil {
		t.Fatal(err)
	}
	md, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if md.SubmissionID != "123456" {
		t.Errorf("SubmissionID = %q, want %q", md.SubmissionID, "123456")
	}
}
