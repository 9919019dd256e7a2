package aggregate

import (
	"testing"

	"github.com/shopspring/decimal"

	"rewardEngine/internal/model"
)

func TestAccountRevenue(t *testing.T) {
	acc := NewAccount("0x1")
	acc.AddOutcome(model.MustOutcome(123, 10, 1, "0x1"))
	acc.AddOutcome(model.MustOutcome(123, 5, 1, "0x1"))
	acc.AddOutcome(model.MustOutcome(123, 0, 10, "0x1"))

	if !acc.Revenue().Equal(decimal.NewFromInt(3)) {
		t.Fatalf("revenue = %s, want 3", acc.Revenue())
	}
}

func TestAccountSummaryFor(t *testing.T) {
	acc := NewAccount("0x1")
	acc.AddOutcome(model.MustOutcome(123, 10, 1, "0x1"))
	acc.AddOutcome(model.MustOutcome(123, 5, 1, "0x1"))
	acc.AddOutcome(model.MustOutcome(123, 0, 10, "0x1"))

	summary := acc.SummaryFor("0x1")
	if summary.PredictionCount != 3 || summary.CorrectPredictionCount != 2 {
		t.Fatalf("counts mismatch: %+v", summary)
	}
	if summary.SubjectID != "0x1" {
		t.Fatalf("subject mismatch: %s", summary.SubjectID)
	}
	if !summary.TotalPayout.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("total payout = %s", summary.TotalPayout)
	}
	if !summary.TotalRevenue.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("total revenue = %s", summary.TotalRevenue)
	}
	if !summary.TotalStake.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("total stake = %s", summary.TotalStake)
	}
}

func TestAccountSummaryForUnknownSubject(t *testing.T) {
	acc := NewAccount("0x1")
	acc.AddOutcome(model.MustOutcome(1, 1, 1, "0xa"))

	summary := acc.SummaryFor("0xb")
	if summary.PredictionCount != 0 || summary.Accuracy() != 0 {
		t.Fatalf("expected zeroed summary, got %+v", summary)
	}
	if !summary.TotalPayout.IsZero() || !summary.TotalStake.IsZero() || !summary.TotalRevenue.IsZero() {
		t.Fatalf("expected zero totals, got %+v", summary)
	}
}

func TestAccountAccuracy(t *testing.T) {
	repeat := func(n int, payout func(i int) float64) []model.Outcome {
		out := make([]model.Outcome, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, model.MustOutcome(2, payout(i), 1, "0x123"))
		}
		return out
	}

	cases := []struct {
		name     string
		outcomes []model.Outcome
		want     float64
	}{
		{"empty", nil, 0},
		{"single correct", []model.Outcome{model.MustOutcome(5, 0.5, 1, "0x123")}, 1},
		{"two of three", []model.Outcome{
			model.MustOutcome(5, 0, 1, "0x123"),
			model.MustOutcome(5, 0.5, 1, "0x123"),
			model.MustOutcome(5, 0.5, 1, "0x123"),
		}, 2.0 / 3.0},
		{"all correct", repeat(100, func(int) float64 { return 1 }), 1},
		{"all wrong", repeat(100, func(int) float64 { return 0 }), 0},
		{"alternating", repeat(100, func(i int) float64 {
			if i%2 == 0 {
				return 1
			}
			return 0
		}), 0.5},
	}

	for _, tc := range cases {
		acc := NewAccount("0x123")
		for _, o := range tc.outcomes {
			acc.AddOutcome(o)
		}
		if got := acc.Accuracy(); got != tc.want {
			t.Fatalf("%s: accuracy = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestAccountIncrementalMatchesRecompute(t *testing.T) {
	acc := NewAccount("0x1")
	payouts := []float64{0, 3, 0, 0, 1.5, 2, 0, 7}
	for i, p := range payouts {
		subject := "0xa"
		if i%3 == 0 {
			subject = "0xb"
		}
		acc.AddOutcome(model.MustOutcome(uint64(i), p, 1, subject))

		var total, correct int
		revenue := decimal.Zero
		for _, o := range acc.Outcomes() {
			total++
			if o.IsCorrect() {
				correct++
			}
			revenue = revenue.Add(o.NetRevenue())
		}
		if acc.PredictionCount() != total || acc.CorrectPredictionCount() != correct {
			t.Fatalf("step %d: counters %d/%d, recomputed %d/%d", i, acc.CorrectPredictionCount(), acc.PredictionCount(), correct, total)
		}
		if !acc.Revenue().Equal(revenue) {
			t.Fatalf("step %d: revenue %s, recomputed %s", i, acc.Revenue(), revenue)
		}
		if acc.Accuracy() != float64(correct)/float64(total) {
			t.Fatalf("step %d: accuracy mismatch", i)
		}
	}
}

func TestAccountAllSummaries(t *testing.T) {
	acc := NewAccount("0x1")
	acc.AddOutcome(model.MustOutcome(1, 1, 1, "0xa"))
	acc.AddOutcome(model.MustOutcome(2, 0, 1, "0xb"))
	acc.AddOutcome(model.MustOutcome(3, 2, 1, "0xa"))
	acc.AddOutcome(model.MustOutcome(4, 4, 1, "0xb"))

	summaries := acc.AllSummaries()
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	a := summaries["0xa"]
	if a.PredictionCount != 2 || a.CorrectPredictionCount != 2 || !a.TotalPayout.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("summary 0xa mismatch: %+v", a)
	}
	b := summaries["0xb"]
	if b.PredictionCount != 2 || b.Accuracy() != 0.5 || !b.TotalRevenue.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("summary 0xb mismatch: %+v", b)
	}
}
