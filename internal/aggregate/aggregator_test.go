package aggregate

import (
	"testing"

	"rewardEngine/internal/model"
)

type memorySink struct {
	errs []model.DecodeError
}

func (s *memorySink) PutDecodeErrors(errs []model.DecodeError) error {
	s.errs = append(s.errs, errs...)
	return nil
}

func record(user, contract, slot, stake string, payout any) model.Record {
	rec := model.Record{
		"id":    user + "-" + slot,
		"user":  map[string]any{"id": user},
		"stake": stake,
		"slot": map[string]any{
			"slot":            slot,
			"predictContract": map[string]any{"id": contract},
		},
	}
	if payout != nil {
		rec["payout"] = payout
	}
	return rec
}

func TestAggregatorFold(t *testing.T) {
	sink := &memorySink{}
	agg := NewAggregator(Config{ChainID: 23294}, sink, nil)

	records := []model.Record{
		record("0xAAA", "0xc1", "1", "1", map[string]any{"payout": "2"}),
		record("0xaaa", "0xc2", "2", "1", map[string]any{}),
		record("0xbbb", "0xc1", "1", "3", map[string]any{"payout": "0"}),
		{"id": "broken", "user": map[string]any{"id": "0xccc"}, "stake": "1"},
	}

	stats, err := agg.Fold(records)
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if stats.Total != 4 || stats.Folded != 3 || stats.Failed != 1 {
		t.Fatalf("stats mismatch: %+v", stats)
	}

	if len(sink.errs) != 1 || sink.errs[0].RecordID != "broken" || sink.errs[0].Field != "slot" {
		t.Fatalf("decode errors mismatch: %+v", sink.errs)
	}
	if sink.errs[0].ChainID != 23294 {
		t.Fatalf("chain id not recorded: %+v", sink.errs[0])
	}

	accounts := agg.Accounts()
	if len(accounts) != 2 || accounts[0].Identity() != "0xaaa" || accounts[1].Identity() != "0xbbb" {
		t.Fatalf("accounts mismatch: %d", len(accounts))
	}

	acc, ok := agg.Account("0xAaA")
	if !ok {
		t.Fatalf("account lookup should ignore case")
	}
	if acc.PredictionCount() != 2 || acc.CorrectPredictionCount() != 1 || acc.Accuracy() != 0.5 {
		t.Fatalf("account stats mismatch: %d %d", acc.PredictionCount(), acc.CorrectPredictionCount())
	}

	subjects := agg.Subjects()
	if len(subjects) != 2 || subjects[0] != "0xc1" || subjects[1] != "0xc2" {
		t.Fatalf("subjects mismatch: %v", subjects)
	}
}

func TestAggregatorFoldAllMalformed(t *testing.T) {
	agg := NewAggregator(Config{}, nil, nil)
	stats, err := agg.Fold([]model.Record{nil, {}})
	if err != nil {
		t.Fatalf("fold: %v", err)
	}
	if stats.Failed != 2 || len(agg.Accounts()) != 0 {
		t.Fatalf("expected every record rejected: %+v", stats)
	}
}
