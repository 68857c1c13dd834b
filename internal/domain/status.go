package domain

import "time"

// Outcome is the result of reconciling one review against storage.
type Outcome string

const (
	OutcomeInserted Outcome = "inserted"
	OutcomeUpdated  Outcome = "updated"
	OutcomeSkipped  Outcome = "skipped"
)

// ReviewState enumerates pipeline milestones for a single review.
type ReviewState string

const (
	StatePending        ReviewState = "pending"
	StateFetching       ReviewState = "fetching"
	StateThrottledRetry ReviewState = "throttled_retry"
	StateParsed         ReviewState = "parsed"
	StateMatching       ReviewState = "matching"
	StateMatched        ReviewState = "matched"
	StateNormalized     ReviewState = "normalized"
	StateDone           ReviewState = "done"
	StateFailed         ReviewState = "failed"
)

// PageReport summarizes one IngestListingPage call.
type PageReport struct {
	Page            int           `json:"page"`
	RunID           string        `json:"runId"`
	Discovered      int           `json:"discovered"`
	Inserted        int           `json:"inserted"`
	Updated         int           `json:"updated"`
	Skipped         int           `json:"skipped"`
	Failed          int           `json:"failed"`
	ThrottleRetries int           `json:"throttleRetries"`
	Duration        time.Duration `json:"duration"`
}

// Record tallies a reconcile outcome.
func (r *PageReport) Record(o Outcome) {
	switch o {
	case OutcomeInserted:
		r.Inserted++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeSkipped:
		r.Skipped++
	}
}
