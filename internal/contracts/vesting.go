package contracts

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

const Week = 7 * 24 * time.Hour

// VestedAmount returns VestingWallet.vestedAmount(token, at).
func VestedAmount(ctx context.Context, caller Caller, wallet, token common.Address, at time.Time) (*big.Int, error) {
	parsed, err := vestingWalletABI.get()
	if err != nil {
		return nil, err
	}
	return callBigInt(ctx, caller, wallet, parsed, "vestedAmount", token, uint64(at.Unix()))
}

// WeeklyVested returns the amount of token vested in the week starting at
// start.
func WeeklyVested(ctx context.Context, caller Caller, wallet, token common.Address, start time.Time) (*big.Int, error) {
	begin, err := VestedAmount(ctx, caller, wallet, token, start)
	if err != nil {
		return nil, fmt.Errorf("vested at week start: %w", err)
	}
	end, err := VestedAmount(ctx, caller, wallet, token, start.Add(Week))
	if err != nil {
		return nil, fmt.Errorf("vested at week end: %w", err)
	}
	diff := new(big.Int).Sub(end, begin)
	if diff.Sign() < 0 {
		return nil, fmt.Errorf("vested amount decreased over the week")
	}
	return diff, nil
}
