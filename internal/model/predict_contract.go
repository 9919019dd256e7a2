package model

import (
	"fmt"
	"strconv"
)

// PredictContract describes a prediction feed contract.
type PredictContract struct {
	ChainID               uint64 `json:"chainid"`
	Address               string `json:"address"`
	Name                  string `json:"name"`
	Symbol                string `json:"symbol"`
	BlocksPerEpoch        uint64 `json:"blocks_per_epoch"`
	BlocksPerSubscription uint64 `json:"blocks_per_subscription"`
}

// NewPredictContract lower-cases the address.
func NewPredictContract(chainID uint64, address, name, symbol string, blocksPerEpoch, blocksPerSubscription uint64) PredictContract {
	return PredictContract{
		ChainID:               chainID,
		Address:               NormalizeAddress(address),
		Name:                  name,
		Symbol:                symbol,
		BlocksPerEpoch:        blocksPerEpoch,
		BlocksPerSubscription: blocksPerSubscription,
	}
}

// PredictContractColumns is the stable column order of ToMap.
var PredictContractColumns = []string{
	"chainid", "address", "name", "symbol", "blocks_per_epoch", "blocks_per_subscription",
}

// ToMap renders the contract as string values, one per column.
func (c PredictContract) ToMap() map[string]string {
	return map[string]string{
		"chainid":                 strconv.FormatUint(c.ChainID, 10),
		"address":                 c.Address,
		"name":                    c.Name,
		"symbol":                  c.Symbol,
		"blocks_per_epoch":        strconv.FormatUint(c.BlocksPerEpoch, 10),
		"blocks_per_subscription": strconv.FormatUint(c.BlocksPerSubscription, 10),
	}
}

// PredictContractFromMap is the inverse of ToMap.
func PredictContractFromMap(data map[string]string) (PredictContract, error) {
	for _, col := range PredictContractColumns {
		if _, ok := data[col]; !ok {
			return PredictContract{}, fmt.Errorf("predict contract: missing %s", col)
		}
	}
	chainID, err := strconv.ParseUint(data["chainid"], 10, 64)
	if err != nil {
		return PredictContract{}, fmt.Errorf("predict contract chainid: %w", err)
	}
	blocksPerEpoch, err := strconv.ParseUint(data["blocks_per_epoch"], 10, 64)
	if err != nil {
		return PredictContract{}, fmt.Errorf("predict contract blocks_per_epoch: %w", err)
	}
	blocksPerSubscription, err := strconv.ParseUint(data["blocks_per_subscription"], 10, 64)
	if err != nil {
		return PredictContract{}, fmt.Errorf("predict contract blocks_per_subscription: %w", err)
	}
	return NewPredictContract(chainID, data["address"], data["name"], data["symbol"], blocksPerEpoch, blocksPerSubscription), nil
}
