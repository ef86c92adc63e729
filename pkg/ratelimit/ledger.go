package ratelimit

import (
	"fmt"
	"strings"
	"time"
)

// Evaluate runs token accounting for the submission being graded now.
//
// The history must be ordered oldest first, exactly as the platform
// supplied it. Each in-window record is inspected:
//
//   - records whose timestamp never parsed count unconditionally, since
//     they cannot be placed in or out of the window
//   - records before cfg.ResetTime are skipped entirely
//   - records at least a full window old are skipped (their token has
//     regenerated)
//   - in-window records with a missing or malformed payload count as
//     having consumed a token (fail-safe: a decode failure must never
//     grant extra tokens)
//   - otherwise the record counts iff it was recorded as counted and
//     its submission id is not excluded
//
// The current submission is allowed iff the counted total is below the
// configured capacity. On a grant the reported count includes the
// current submission itself.
//
// Evaluate is pure: it never mutates its inputs and holds no state
// between calls.
func Evaluate(now time.Time, cfg Config, history []SubmissionRecord) Decision {
	if !cfg.Enabled() {
		return Decision{Allowed: true}
	}

	capacity := *cfg.Tokens
	windowSeconds := cfg.Window.TotalSeconds()

	tokensUsed := 0
	var oldestCounted *time.Time

	for _, r := range history {
		if r.Malformed && r.SubmittedAt.IsZero() {
			// Timestamp never parsed, so the record cannot be placed in
			// or out of the window. It counts unconditionally.
			tokensUsed++
			continue
		}
		if cfg.ResetTime != nil && r.SubmittedAt.Before(*cfg.ResetTime) {
			// Predates an administrative reset.
			continue
		}
		if now.Unix()-r.SubmittedAt.Unix() >= windowSeconds {
			// Outside the regeneration window.
			continue
		}
		if r.Malformed || r.Results == nil {
			// Fail-safe: an unreadable record still consumes a token.
			tokensUsed++
			continue
		}
		if r.Counted && !cfg.excluded(r.SubmissionID) {
			if oldestCounted == nil {
				t := r.SubmittedAt
				oldestCounted = &t
			}
			tokensUsed++
		}
	}

	allowed := tokensUsed < capacity

	d := Decision{
		Allowed:       allowed,
		TokensUsed:    tokensUsed,
		OldestCounted: oldestCounted,
	}
	if allowed {
		// The current submission consumes a token of its own.
		d.TokensUsed = tokensUsed + 1
	}

	if oldestCounted != nil {
		t := oldestCounted.Add(cfg.Window.Duration())
		d.NextRegen = &t
	} else if allowed {
		// The current submission becomes the oldest counted one.
		t := now.Add(cfg.Window.Duration())
		d.NextRegen = &t
	}

	d.Message = composeMessage(capacity, cfg, d)
	return d
}

// composeMessage builds the student-facing explanation: the token-usage
// sentence followed by the next-regeneration sentence.
func composeMessage(capacity int, cfg Config, d Decision) string {
	var b strings.Builder

	if d.Allowed {
		fmt.Fprintf(&b,
			"[Rate Limit]: Students can get up to %d graded submissions within any given period of %s. In the last period, you have had %d graded submissions.\n",
			capacity, cfg.Window, d.TokensUsed)
	} else {
		replay := "."
		if cfg.PullPreviousRun {
			replay = ", so the results of your last graded submission are being displayed."
		}
		fmt.Fprintf(&b,
			"[Rate Limit]: Students can get up to %d graded submissions within any given period of %s. You have already had %d graded submissions within the last %s%s Because you do not have any more tokens, this submission will not count as a graded submission.\n",
			capacity, cfg.Window, d.TokensUsed, cfg.Window, replay)
	}

	if d.NextRegen != nil {
		fmt.Fprintf(&b,
			"[Rate Limit]: As of this submission time, your next token will regenerate at %s (PT).\n",
			d.NextRegen.Format(time.ANSIC))
	} else {
		b.WriteString("[Rate Limit]: As of this submission time, you have not used any tokens!\n")
	}

	return b.String()
}
