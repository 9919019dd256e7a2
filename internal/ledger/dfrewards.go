package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewardEngine/internal/chain"
	"rewardEngine/internal/contracts"
	"rewardEngine/internal/dispense"
)

// Transactor sends state changing calls. *chain.Transactor implements it.
type Transactor interface {
	From() common.Address
	Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

type Config struct {
	DFRewards common.Address
	Token     common.Address
	Decimals  uint8
}

// DFRewards is a payout ledger backed by the DFRewards contract. A batch is
// paid by approving the batch total and calling allocate.
type DFRewards struct {
	cfg    Config
	caller contracts.Caller
	tx     Transactor
	logger *zap.Logger
}

func NewDFRewards(cfg Config, caller contracts.Caller, tx Transactor, logger *zap.Logger) (*DFRewards, error) {
	if cfg.DFRewards == (common.Address{}) {
		return nil, dispense.Configuration("DFRewards address is not set")
	}
	if cfg.Token == (common.Address{}) {
		return nil, dispense.Configuration("token address is not set")
	}
	if caller == nil || tx == nil {
		return nil, dispense.Configuration("chain client is not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DFRewards{cfg: cfg, caller: caller, tx: tx, logger: logger}, nil
}

// AlreadyPaid reports whether recipient can already claim exactly amount.
func (l *DFRewards) AlreadyPaid(ctx context.Context, recipient string, amount decimal.Decimal) (bool, error) {
	to, err := contracts.ParseAddress(recipient)
	if err != nil {
		return false, dispense.Permanent("claimable", err)
	}
	want, err := contracts.ToWei(amount, l.cfg.Decimals)
	if err != nil {
		return false, dispense.Permanent("claimable", err)
	}
	got, err := contracts.Claimable(ctx, l.caller, l.cfg.DFRewards, to, l.cfg.Token)
	if err != nil {
		return false, classify("claimable", err)
	}
	return got.Cmp(want) == 0, nil
}

func (l *DFRewards) SubmitBatch(ctx context.Context, batch dispense.Batch) error {
	tos := make([]common.Address, 0, len(batch.Entries))
	values := make([]*big.Int, 0, len(batch.Entries))
	total := new(big.Int)
	for _, entry := range batch.Entries {
		to, err := contracts.ParseAddress(entry.Recipient)
		if err != nil {
			return dispense.Permanent("allocate", err)
		}
		wei, err := contracts.ToWei(entry.Amount, l.cfg.Decimals)
		if err != nil {
			return dispense.Permanent("allocate", fmt.Errorf("%s: %w", entry.Recipient, err))
		}
		tos = append(tos, to)
		values = append(values, wei)
		total.Add(total, wei)
	}

	from := l.tx.From()
	balance, err := contracts.BalanceOf(ctx, l.caller, l.cfg.Token, from)
	if err != nil {
		return classify("balanceOf", err)
	}
	if balance.Cmp(total) < 0 {
		return dispense.Permanent("allocate", fmt.Errorf("balance %s of %s is below batch total %s", balance, from.Hex(), total))
	}

	allowance, err := contracts.Allowance(ctx, l.caller, l.cfg.Token, from, l.cfg.DFRewards)
	if err != nil {
		return classify("allowance", err)
	}
	if allowance.Cmp(total) < 0 {
		data, err := contracts.ApproveData(l.cfg.DFRewards, total)
		if err != nil {
			return dispense.Permanent("approve", err)
		}
		receipt, err := l.tx.Transact(ctx, l.cfg.Token, data)
		if err != nil {
			return classify("approve", err)
		}
		l.logger.Debug("approved", zap.String("tx", receipt.TxHash.Hex()), zap.String("amount", total.String()))
	}

	data, err := contracts.AllocateData(tos, values, l.cfg.Token)
	if err != nil {
		return dispense.Permanent("allocate", err)
	}
	receipt, err := l.tx.Transact(ctx, l.cfg.DFRewards, data)
	if err != nil {
		return classify("allocate", err)
	}
	l.logger.Info("allocated",
		zap.Int("batch", batch.Index),
		zap.Int("recipients", len(tos)),
		zap.String("tx", receipt.TxHash.Hex()),
	)
	return nil
}

// classify maps reverts to permanent errors and everything else to transient.
func classify(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, chain.ErrReverted) {
		return dispense.Permanent(op, err)
	}
	return dispense.Transient(op, err)
}
