package contracts

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TokenMeta is the immutable ERC20 metadata of a token.
type TokenMeta struct {
	Address  string
	Symbol   string
	Name     string
	Decimals uint8
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// Lookup returns cached metadata or fetches and caches it.
func (c *TokenMetaCache) Lookup(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (TokenMeta, error) {
	if meta, ok := c.Get(token); ok {
		return meta, nil
	}
	meta, err := FetchTokenMeta(ctx, caller, token, logger)
	if err != nil {
		return meta, err
	}
	c.Set(token, meta)
	return meta, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Decimals are required;
// symbol and name fall back to bytes32 encodings and are optional.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, logger *zap.Logger) (TokenMeta, error) {
	meta := TokenMeta{Address: token.Hex()}
	if logger == nil {
		logger = zap.NewNop()
	}

	stringABI, err := erc20ABIString.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32.get()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := call(ctx, caller, token, stringABI, "decimals", nil)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := call(ctx, caller, token, stringABI, "symbol", nil); err == nil {
		meta.Symbol, _ = values[0].(string)
	} else if values, err := call(ctx, caller, token, bytes32ABI, "symbol", nil); err == nil {
		meta.Symbol, _ = bytes32ToString(values[0])
	} else {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call(ctx, caller, token, stringABI, "name", nil); err == nil {
		meta.Name, _ = values[0].(string)
	} else if values, err := call(ctx, caller, token, bytes32ABI, "name", nil); err == nil {
		meta.Name, _ = bytes32ToString(values[0])
	} else {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func BalanceOf(ctx context.Context, caller Caller, token, owner common.Address) (*big.Int, error) {
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, err
	}
	return callBigInt(ctx, caller, token, parsed, "balanceOf", owner)
}

func Allowance(ctx context.Context, caller Caller, token, owner, spender common.Address) (*big.Int, error) {
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, err
	}
	return callBigInt(ctx, caller, token, parsed, "allowance", owner, spender)
}

// ApproveData encodes approve(spender, amount).
func ApproveData(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := erc20ABIString.get()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("approve", spender, amount)
}

// ToWei converts a token amount to base units. Digits beyond the token's
// precision are truncated.
func ToWei(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", amount)
	}
	return amount.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// FromWei converts base units to a token amount.
func FromWei(wei *big.Int, decimals uint8) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -int32(decimals))
}
