package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Outcome is the resolved result of a single prediction for one slot.
// Fields are unexported so an Outcome cannot change after construction.
type Outcome struct {
	slot      uint64
	payout    decimal.Decimal
	stake     decimal.Decimal
	subjectID string
}

// NewOutcome validates and builds an Outcome.
func NewOutcome(slot uint64, payout, stake decimal.Decimal, subjectID string) (Outcome, error) {
	if subjectID == "" {
		return Outcome{}, fmt.Errorf("subject id is required")
	}
	if payout.IsNegative() {
		return Outcome{}, fmt.Errorf("payout must be non-negative: %s", payout)
	}
	if stake.IsNegative() {
		return Outcome{}, fmt.Errorf("stake must be non-negative: %s", stake)
	}
	return Outcome{
		slot:      slot,
		payout:    payout,
		stake:     stake,
		subjectID: subjectID,
	}, nil
}

// MustOutcome is NewOutcome for literals known to be valid.
func MustOutcome(slot uint64, payout, stake float64, subjectID string) Outcome {
	o, err := NewOutcome(slot, decimal.NewFromFloat(payout), decimal.NewFromFloat(stake), subjectID)
	if err != nil {
		panic(err)
	}
	return o
}

func (o Outcome) Slot() uint64            { return o.slot }
func (o Outcome) Payout() decimal.Decimal { return o.payout }
func (o Outcome) Stake() decimal.Decimal  { return o.stake }
func (o Outcome) SubjectID() string       { return o.subjectID }

// IsCorrect reports whether the prediction paid out. Only slots with a
// submitted true value are resolved, so a zero payout means a wrong call.
func (o Outcome) IsCorrect() bool {
	return o.payout.IsPositive()
}

// NetRevenue is payout minus stake and may be negative.
func (o Outcome) NetRevenue() decimal.Decimal {
	return o.payout.Sub(o.stake)
}
