package aggregate

import (
	"github.com/shopspring/decimal"

	"rewardEngine/internal/model"
)

// Account holds every outcome of one predictor together with running
// counters that are updated on each append.
type Account struct {
	identity string
	outcomes []model.Outcome

	totalCount      int
	correctCount    int
	totalNetRevenue decimal.Decimal
}

func NewAccount(identity string) *Account {
	return &Account{
		identity:        identity,
		totalNetRevenue: decimal.Zero,
	}
}

func (a *Account) Identity() string { return a.identity }

// AddOutcome appends an outcome and updates the counters in O(1).
func (a *Account) AddOutcome(outcome model.Outcome) {
	a.outcomes = append(a.outcomes, outcome)
	a.totalCount++
	if outcome.IsCorrect() {
		a.correctCount++
	}
	a.totalNetRevenue = a.totalNetRevenue.Add(outcome.NetRevenue())
}

func (a *Account) PredictionCount() int        { return a.totalCount }
func (a *Account) CorrectPredictionCount() int { return a.correctCount }
func (a *Account) Revenue() decimal.Decimal    { return a.totalNetRevenue }

// Accuracy is correct/total, or 0 for an account without outcomes.
func (a *Account) Accuracy() float64 {
	return ratio(a.correctCount, a.totalCount)
}

// Outcomes returns a copy of the outcome sequence in append order.
func (a *Account) Outcomes() []model.Outcome {
	out := make([]model.Outcome, len(a.outcomes))
	copy(out, a.outcomes)
	return out
}

// SummaryFor scans the outcomes of one subject. A subject without outcomes
// yields a zeroed summary.
func (a *Account) SummaryFor(subjectID string) SubjectSummary {
	summary := SubjectSummary{
		SubjectID:    subjectID,
		TotalPayout:  decimal.Zero,
		TotalStake:   decimal.Zero,
		TotalRevenue: decimal.Zero,
	}
	for _, outcome := range a.outcomes {
		if outcome.SubjectID() != subjectID {
			continue
		}
		summary.PredictionCount++
		summary.TotalStake = summary.TotalStake.Add(outcome.Stake())
		summary.TotalRevenue = summary.TotalRevenue.Add(outcome.NetRevenue())
		if outcome.IsCorrect() {
			summary.CorrectPredictionCount++
			summary.TotalPayout = summary.TotalPayout.Add(outcome.Payout())
		}
	}
	return summary
}

// AllSummaries returns one summary per subject seen, computing each subject
// once even when its outcomes are interleaved with others.
func (a *Account) AllSummaries() map[string]SubjectSummary {
	summaries := make(map[string]SubjectSummary)
	for _, outcome := range a.outcomes {
		subject := outcome.SubjectID()
		if _, ok := summaries[subject]; ok {
			continue
		}
		summaries[subject] = a.SummaryFor(subject)
	}
	return summaries
}

func ratio(num, denom int) float64 {
	if denom == 0 {
		return 0
	}
	return float64(num) / float64(denom)
}
