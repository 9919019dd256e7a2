package dispense

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// BatchStatus is the terminal state of one batch.
type BatchStatus string

const (
	BatchSucceeded BatchStatus = "success"
	BatchFailed    BatchStatus = "failed"
	BatchSkipped   BatchStatus = "skipped"
	// BatchNotRun marks batches left behind by a cancelled run.
	BatchNotRun BatchStatus = "not_run"
)

// BatchResult records how one batch ended.
type BatchResult struct {
	Index      int             `json:"index"`
	Status     BatchStatus     `json:"status"`
	Recipients int             `json:"recipients"`
	Total      decimal.Decimal `json:"total"`
	Attempts   int             `json:"attempts"`
	Error      string          `json:"error,omitempty"`
}

// Report is the outcome of a dispense run.
type Report struct {
	RunID          string          `json:"run_id"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	Batches        []BatchResult   `json:"batches"`
	RecipientsPaid int             `json:"recipients_paid"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
}

// ReportStore persists run reports.
type ReportStore interface {
	SaveReport(ctx context.Context, report Report) error
}

// Count returns the number of batches with the given status.
func (r Report) Count(status BatchStatus) int {
	n := 0
	for _, b := range r.Batches {
		if b.Status == status {
			n++
		}
	}
	return n
}

// FailedBatches returns the indexes to re-run.
func (r Report) FailedBatches() []int {
	out := make([]int, 0)
	for _, b := range r.Batches {
		if b.Status == BatchFailed || b.Status == BatchNotRun {
			out = append(out, b.Index)
		}
	}
	return out
}
