package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SafeNonce returns the current nonce of a Safe multisig.
func SafeNonce(ctx context.Context, caller Caller, safe common.Address) (*big.Int, error) {
	parsed, err := safeABI.get()
	if err != nil {
		return nil, err
	}
	return callBigInt(ctx, caller, safe, parsed, "nonce")
}

// SafeTransactionHash asks the Safe for the hash owners sign for a plain call
// with no gas refund.
func SafeTransactionHash(ctx context.Context, caller Caller, safe, to common.Address, value *big.Int, data []byte, nonce *big.Int) (common.Hash, error) {
	parsed, err := safeABI.get()
	if err != nil {
		return common.Hash{}, err
	}
	if value == nil {
		value = big.NewInt(0)
	}
	zero := big.NewInt(0)
	values, err := call(ctx, caller, safe, parsed, "getTransactionHash", nil,
		to, value, data, uint8(0), zero, zero, zero, common.Address{}, common.Address{}, nonce)
	if err != nil {
		return common.Hash{}, err
	}
	raw, ok := values[0].([32]byte)
	if !ok {
		return common.Hash{}, fmt.Errorf("getTransactionHash unexpected type %T", values[0])
	}
	return common.Hash(raw), nil
}
