package reward

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Precision is the number of decimals kept when splitting rewards, matching
// an 18-decimal token.
const Precision = 18

// Performance is one predictor's revenue on one prediction contract.
type Performance struct {
	Recipient string
	Subject   string
	Revenue   decimal.Decimal
}

// CalcPredictoorRewards splits total equally across the contracts that saw
// predictions. Inside a contract, each predictor earns in proportion to its
// positive revenue there; predictors with no positive revenue get a zero entry.
// Shares are truncated to Precision so the result never exceeds total.
func CalcPredictoorRewards(perf []Performance, total decimal.Decimal) (Table, error) {
	if total.IsNegative() {
		return nil, fmt.Errorf("total reward must be non-negative: %s", total)
	}

	bySubject := make(map[string][]Performance)
	for _, p := range perf {
		if p.Subject == "" {
			return nil, fmt.Errorf("performance for %s has no subject", p.Recipient)
		}
		bySubject[p.Subject] = append(bySubject[p.Subject], p)
	}

	table := make(Table)
	if len(bySubject) == 0 {
		return table, nil
	}

	subjects := make([]string, 0, len(bySubject))
	for subject := range bySubject {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	perSubject, _ := total.QuoRem(decimal.NewFromInt(int64(len(subjects))), Precision)

	for _, subject := range subjects {
		rows := bySubject[subject]
		positive := decimal.Zero
		for _, p := range rows {
			if p.Revenue.IsPositive() {
				positive = positive.Add(p.Revenue)
			}
		}
		for _, p := range rows {
			share := decimal.Zero
			if p.Revenue.IsPositive() && positive.IsPositive() {
				share, _ = perSubject.Mul(p.Revenue).QuoRem(positive, Precision)
			}
			if err := table.Add(share, p.Recipient, subject); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}
