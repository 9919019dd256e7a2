package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Claimable returns the amount of token the DFRewards contract holds for to.
func Claimable(ctx context.Context, caller Caller, dfRewards, to, token common.Address) (*big.Int, error) {
	parsed, err := dfRewardsABI.get()
	if err != nil {
		return nil, err
	}
	return callBigInt(ctx, caller, dfRewards, parsed, "claimable", to, token)
}

// AllocateData encodes allocate(tos, values, token).
func AllocateData(tos []common.Address, values []*big.Int, token common.Address) ([]byte, error) {
	if len(tos) != len(values) {
		return nil, fmt.Errorf("allocate: %d recipients but %d values", len(tos), len(values))
	}
	parsed, err := dfRewardsABI.get()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("allocate", tos, values, token)
}

// CheckpointTotalSupplyData encodes FeeDistributor.checkpoint_total_supply().
func CheckpointTotalSupplyData() ([]byte, error) {
	parsed, err := feeDistributorABI.get()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("checkpoint_total_supply")
}

// CheckpointTokenData encodes FeeDistributor.checkpoint_token().
func CheckpointTokenData() ([]byte, error) {
	parsed, err := feeDistributorABI.get()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("checkpoint_token")
}
