package aggregate

import "github.com/shopspring/decimal"

// SubjectSummary is the per-(account, subject) view derived on demand.
// It is returned by value and never updated after construction.
type SubjectSummary struct {
	SubjectID              string
	PredictionCount        int
	CorrectPredictionCount int
	TotalPayout            decimal.Decimal
	TotalStake             decimal.Decimal
	TotalRevenue           decimal.Decimal
}

func (s SubjectSummary) Accuracy() float64 {
	return ratio(s.CorrectPredictionCount, s.PredictionCount)
}
