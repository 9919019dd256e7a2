package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// ErrReverted reports a transaction that was mined with a failed status or
// rejected during gas estimation.
var ErrReverted = errors.New("transaction reverted")

// Backend is the subset of Client used to send transactions.
type Backend interface {
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Transactor signs, sends and waits for transactions from one account.
type Transactor struct {
	backend     Backend
	signer      *Signer
	waitTimeout time.Duration
	logger      *zap.Logger
}

func NewTransactor(backend Backend, signer *Signer, waitTimeout time.Duration, logger *zap.Logger) *Transactor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if waitTimeout <= 0 {
		waitTimeout = 2 * time.Minute
	}
	return &Transactor{backend: backend, signer: signer, waitTimeout: waitTimeout, logger: logger}
}

func (t *Transactor) From() common.Address { return t.signer.Address() }

// Transact sends data to the contract at to and waits for the receipt.
func (t *Transactor) Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	from := t.signer.Address()
	chainID, err := t.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := t.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	gas, err := t.backend.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &to, Data: data})
	if err != nil {
		if isRevert(err) {
			return nil, fmt.Errorf("estimate gas: %w: %v", ErrReverted, err)
		}
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := t.signer.SignTx(tx, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}
	t.logger.Debug("tx sent", zap.String("hash", signed.Hash().Hex()), zap.Uint64("nonce", nonce))

	waitCtx, cancel := context.WithTimeout(ctx, t.waitTimeout)
	defer cancel()
	receipt, err := bind.WaitMined(waitCtx, t.backend, signed)
	if err != nil {
		return nil, fmt.Errorf("wait tx %s: %w", signed.Hash().Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, fmt.Errorf("tx %s: %w", signed.Hash().Hex(), ErrReverted)
	}
	return receipt, nil
}

func isRevert(err error) bool {
	var dataErr interface{ ErrorData() interface{} }
	if errors.As(err, &dataErr) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "execution reverted")
}
