package models

import "time"

// Outcome classifies the result of processing a single URL.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeSkipped Outcome = "skipped_duplicate"
	OutcomeFailed  Outcome = "failed"
)

// DownloadRecord is the result of one attempted URL.
type DownloadRecord struct {
	URL         string
	Filename    string
	Outcome     Outcome
	ErrorDetail string // present iff Outcome is OutcomeFailed
	Size        int
	Duration    time.Duration
}

// RunSummary aggregates the outcome counts of a download run.
// It is always derived from the records; succeeded + skipped + failed
// equals attempted for every run.
type RunSummary struct {
	Attempted int
	Succeeded int
	Skipped   int
	Failed    int
	OutputDir string
}

// Add folds a record into the summary.
func (s *RunSummary) Add(rec DownloadRecord) {
	s.Attempted++
	switch rec.Outcome {
	case OutcomeSuccess:
		s.Succeeded++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
