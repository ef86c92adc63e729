package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"classhub/gradekeeper/pkg/ratelimit"
)

// timeLayout is the platform timestamp format after the timezone
// suffix has been dropped.
const timeLayout = "2006-01-02T15:04:05"

// tzSuffixLen is the fixed width of the trailing timezone suffix on
// platform timestamps (".000000-08:00").
const tzSuffixLen = 13

// ErrNoMetadata is returned when the metadata file does not exist,
// which is the normal state for local runs outside the platform.
var ErrNoMetadata = errors.New("submission metadata file not found")

// Metadata is the parsed submission metadata for the current run.
type Metadata struct {
	// SubmissionID is the platform's identifier for the current
	// submission.
	SubmissionID string

	// CreatedAt is when the current submission was made. This is the
	// "now" the rate limit engine evaluates against, not the process
	// clock.
	CreatedAt time.Time

	// History is the prior submissions, oldest first, in platform
	// order.
	History []ratelimit.SubmissionRecord
}

// raw wire shapes. Results payloads are decoded leniently: a failure
// anywhere marks the record malformed instead of failing the load.
type rawMetadata struct {
	ID                  flexID          `json:"id"`
	CreatedAt           string          `json:"created_at"`
	PreviousSubmissions []rawSubmission `json:"previous_submissions"`
}

// flexID accepts a JSON string or number; the platform stores numeric
// submission ids while the harness writes them back as strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type rawSubmission struct {
	SubmissionTime string          `json:"submission_time"`
	Score          *float64        `json:"score"`
	Results        json.RawMessage `json:"results"`
}

type rawResults struct {
	ExtraData   json.RawMessage   `json:"extra_data"`
	Score       *float64          `json:"score"`
	Tests       []json.RawMessage `json:"tests"`
	Leaderboard json.RawMessage   `json:"leaderboard"`
}

type rawExtraData struct {
	ID        flexID `json:"id"`
	SubCounts *int   `json:"sub_counts"`
}

// Load reads and parses the metadata file at path. A missing file
// returns ErrNoMetadata; anything else that prevents reading the
// top-level document is a hard error, since without it no history can
// be trusted.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoMetadata, path)
		}
		return nil, fmt.Errorf("failed to read submission metadata %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a submission metadata document.
func Parse(data []byte) (*Metadata, error) {
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse submission metadata: %w", err)
	}

	md := &Metadata{SubmissionID: string(raw.ID)}
	if md.SubmissionID == "" {
		md.SubmissionID = "LOCAL"
	}

	createdAt, err := ParseTime(raw.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", raw.CreatedAt, err)
	}
	md.CreatedAt = createdAt

	log := slog.Default().With("component", "metadata")
	md.History = make([]ratelimit.SubmissionRecord, 0, len(raw.PreviousSubmissions))
	for i, sub := range raw.PreviousSubmissions {
		rec := parseSubmission(sub)
		if rec.Malformed {
			log.Warn("malformed history entry will count against the token capacity",
				"index", i, "submission_time", sub.SubmissionTime)
		}
		md.History = append(md.History, rec)
	}
	return md, nil
}

// ParseTime parses a platform timestamp, dropping the trailing
// timezone suffix first.
func ParseTime(s string) (time.Time, error) {
	if len(s) <= tzSuffixLen {
		return time.Time{}, fmt.Errorf("timestamp %q shorter than timezone suffix", s)
	}
	return time.Parse(timeLayout, s[:len(s)-tzSuffixLen])
}

// parseSubmission converts one wire record. Decode failures mark the
// record malformed; they never abort the load.
func parseSubmission(sub rawSubmission) ratelimit.SubmissionRecord {
	rec := ratelimit.SubmissionRecord{}

	at, err := ParseTime(sub.SubmissionTime)
	if err != nil {
		rec.Malformed = true
		return rec
	}
	rec.SubmittedAt = at

	if len(sub.Results) == 0 || string(sub.Results) == "null" {
		// No stored payload at all: the engine fail-safe counts it.
		return rec
	}

	var res rawResults
	if err := json.Unmarshal(sub.Results, &res); err != nil {
		rec.Malformed = true
		return rec
	}

	if len(res.ExtraData) == 0 || string(res.ExtraData) == "null" {
		rec.Malformed = true
	} else {
		var ed rawExtraData
		if err := json.Unmarshal(res.ExtraData, &ed); err != nil || ed.SubCounts == nil {
			rec.Malformed = true
		} else {
			rec.Counted = *ed.SubCounts == 1
			rec.SubmissionID = string(ed.ID)
		}
	}

	stored := &ratelimit.StoredResult{
		Score:       res.Score,
		Tests:       res.Tests,
		Leaderboard: res.Leaderboard,
	}
	if sub.Score != nil {
		// The submission-level score is what the platform displays, so
		// it wins over the stored payload's copy on rehydration.
		stored.Score = sub.Score
	}
	rec.Results = stored
	return rec
}
