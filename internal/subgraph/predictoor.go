package subgraph

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"rewardEngine/internal/model"
)

const predictContractsQuery = `query PredictContracts($first: Int!, $lastID: String!) {
  predictContracts(first: $first, orderBy: id, orderDirection: asc, where: {id_gt: $lastID}) {
    id
    token { id name symbol }
    blocksPerEpoch
    blocksPerSubscription
  }
}`

const predictionsQuery = `query Predictions($first: Int!, $lastID: String!, $start: Int!, $end: Int!) {
  predictPredictions(
    first: $first
    orderBy: id
    orderDirection: asc
    where: {id_gt: $lastID, timestamp_gte: $start, timestamp_lte: $end}
  ) {
    id
    timestamp
    stake
    user { id }
    slot { id slot predictContract { id } }
    payout { id payout }
  }
}`

// PredictContracts returns every predictoor contract deployed on the chain.
func (c *Client) PredictContracts(ctx context.Context, chainID uint64) ([]model.PredictContract, error) {
	records, err := c.paginate(ctx, "predictContracts", "predictContracts", predictContractsQuery, nil)
	if err != nil {
		return nil, err
	}
	out := make([]model.PredictContract, 0, len(records))
	for _, rec := range records {
		contract, err := parsePredictContract(chainID, rec)
		if err != nil {
			return nil, &QueryError{Op: "predictContracts", Err: err}
		}
		out = append(out, contract)
	}
	c.logger.Info("predict contracts fetched", zap.Uint64("chain_id", chainID), zap.Int("count", len(out)))
	return out, nil
}

// Predictions returns raw prediction records with a timestamp in [start, end].
// Records are left unparsed so the aggregator can isolate malformed ones.
func (c *Client) Predictions(ctx context.Context, start, end int64) ([]model.Record, error) {
	if end < start {
		return nil, fmt.Errorf("end %d before start %d", end, start)
	}
	records, err := c.paginate(ctx, "predictPredictions", "predictPredictions", predictionsQuery, map[string]any{
		"start": start,
		"end":   end,
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("predictions fetched", zap.Int64("start", start), zap.Int64("end", end), zap.Int("count", len(records)))
	return records, nil
}

func parsePredictContract(chainID uint64, rec model.Record) (model.PredictContract, error) {
	id, _ := rec["id"].(string)
	if id == "" {
		return model.PredictContract{}, fmt.Errorf("predict contract without id")
	}
	var name, symbol string
	if token, ok := rec["token"].(map[string]any); ok {
		name, _ = token["name"].(string)
		symbol, _ = token["symbol"].(string)
	}
	perEpoch, err := uintField(rec, "blocksPerEpoch")
	if err != nil {
		return model.PredictContract{}, fmt.Errorf("%s: %w", id, err)
	}
	perSub, err := uintField(rec, "blocksPerSubscription")
	if err != nil {
		return model.PredictContract{}, fmt.Errorf("%s: %w", id, err)
	}
	return model.NewPredictContract(chainID, id, name, symbol, perEpoch, perSub), nil
}

func uintField(rec model.Record, key string) (uint64, error) {
	switch v := rec[key].(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseUint(v, 10, 64)
	case fmt.Stringer:
		return strconv.ParseUint(v.String(), 10, 64)
	default:
		return 0, fmt.Errorf("%s has type %T", key, v)
	}
}
