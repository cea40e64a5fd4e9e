package model

import "time"

// MaxErrorSamples bounds how many error messages the report keeps per
// category; further errors are counted but not stored.
const MaxErrorSamples = 5

// BatchReport summarizes one reconciliation run.
type BatchReport struct {
	StartedAt      time.Time
	CompletedAt    time.Time
	ID             string
	ErrorSamples   map[string][]string
	MatchedByType  map[MatchType]int
	StageHistogram map[ExtractionMethod]int
	Processed      int
	Matched        int
	Unmatched      int
	Errors         int
}

// NewBatchReport creates an empty report for a run starting now.
func NewBatchReport(id string) *BatchReport {
	return &BatchReport{
		ID:             id,
		StartedAt:      time.Now(),
		ErrorSamples:   make(map[string][]string),
		MatchedByType:  make(map[MatchType]int),
		StageHistogram: make(map[ExtractionMethod]int),
	}
}

// RecordMatch tallies a match result against the report.
func (r *BatchReport) RecordMatch(result *MatchResult) {
	r.Processed++
	r.MatchedByType[result.Type]++
	if result.Matched() {
		r.Matched++
	} else {
		r.Unmatched++
	}
}

// RecordStage tallies which cascade stage produced a receipt.
func (r *BatchReport) RecordStage(method ExtractionMethod) {
	r.StageHistogram[method]++
}

// RecordError counts an error under a category, keeping the first few
// messages as samples for the operator.
func (r *BatchReport) RecordError(category, message string) {
	r.Errors++
	if len(r.ErrorSamples[category]) < MaxErrorSamples {
		r.ErrorSamples[category] = append(r.ErrorSamples[category], message)
	}
}

// Duration returns how long the batch took, or time since start if the
// batch has not completed.
func (r *BatchReport) Duration() time.Duration {
	if r.CompletedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.CompletedAt.Sub(r.StartedAt)
}
