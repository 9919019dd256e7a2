package feedist

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"rewardEngine/internal/contracts"
	"rewardEngine/internal/dispense"
	"rewardEngine/internal/retry"
)

// Transactor sends state changing calls. *chain.Transactor implements it.
type Transactor interface {
	Transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error)
}

type Config struct {
	FeeDistributor common.Address
	Direct         retry.Policy
	Fallback       retry.Policy
}

// Checkpointer checkpoints the FeeDistributor total supply and token
// balance. When a direct call fails the remaining calls are proposed to the
// multisig instead.
type Checkpointer struct {
	cfg     Config
	tx      Transactor
	channel dispense.MultipartyChannel
	logger  *zap.Logger
}

func NewCheckpointer(cfg Config, tx Transactor, channel dispense.MultipartyChannel, logger *zap.Logger) (*Checkpointer, error) {
	if cfg.FeeDistributor == (common.Address{}) {
		return nil, dispense.Configuration("FeeDistributor address is not set")
	}
	if tx == nil {
		return nil, dispense.Configuration("chain client is not set")
	}
	if cfg.Direct.Attempts == 0 {
		cfg.Direct = retry.Fixed(1, 0)
	}
	if cfg.Fallback.Attempts == 0 {
		cfg.Fallback = dispense.DefaultFallback()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkpointer{cfg: cfg, tx: tx, channel: channel, logger: logger}, nil
}

// Operations returns checkpoint_total_supply followed by checkpoint_token.
func (c *Checkpointer) Operations() []dispense.Operation {
	return []dispense.Operation{
		c.operation("checkpoint_total_supply", contracts.CheckpointTotalSupplyData),
		c.operation("checkpoint_token", contracts.CheckpointTokenData),
	}
}

func (c *Checkpointer) operation(name string, encode func() ([]byte, error)) dispense.Operation {
	target := c.cfg.FeeDistributor
	return dispense.Operation{
		Name: name,
		Direct: func(ctx context.Context) error {
			data, err := encode()
			if err != nil {
				return err
			}
			receipt, err := c.tx.Transact(ctx, target, data)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			c.logger.Info("checkpoint sent", zap.String("op", name), zap.String("tx", receipt.TxHash.Hex()))
			return nil
		},
		Encode: func() (dispense.Payload, error) {
			data, err := encode()
			if err != nil {
				return dispense.Payload{}, err
			}
			return dispense.Payload{
				To:          target.Hex(),
				Data:        data,
				Description: "FeeDistributor." + name,
			}, nil
		},
	}
}

// Checkpoint runs both checkpoints. Failures are reported, not returned.
func (c *Checkpointer) Checkpoint(ctx context.Context) dispense.EscalationReport {
	esc := dispense.NewEscalator(c.cfg.Direct, c.cfg.Fallback, c.channel, c.logger)
	report := esc.Run(ctx, c.Operations()...)
	fields := []zap.Field{
		zap.String("fee_distributor", c.cfg.FeeDistributor.Hex()),
		zap.Bool("escalated", report.Escalated),
	}
	if err := report.Err(); err != nil {
		c.logger.Error("checkpoint incomplete", append(fields, zap.Error(err))...)
	} else {
		c.logger.Info("checkpoint done", fields...)
	}
	return report
}
