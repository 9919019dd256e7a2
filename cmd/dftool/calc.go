package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rewardEngine/internal/chain"
	"rewardEngine/internal/config"
	"rewardEngine/internal/contracts"
	"rewardEngine/internal/dispense"
	"rewardEngine/internal/network"
	"rewardEngine/internal/reward"
	"rewardEngine/internal/storage"
	pgstore "rewardEngine/internal/storage/postgres"
)

func calcFlags(fs *pflag.FlagSet) {
	networkFlags(fs, network.SepoliaChainID)
	fs.String("stream", "", "reward stream (predictoor_rose)")
	fs.String("csv-dir", "", "directory holding predictoor data, rewards are written here")
	fs.String("total", "", "total reward; 0 reads the weekly amount from the vesting wallet")
	fs.String("start-date", "", "week start (YYYY-MM-DD), required when total is 0")
	fs.Uint64("reward-chain-id", network.SapphireMainnetChainID, "chain whose predictoor summaries are rewarded")
	fs.String("pg-dsn", "", "also save the reward table to Postgres")
}

func runCalc(cmd *cobra.Command, args []string) error {
	if err := bindArgs(cmd, args, "stream", "csv-dir", "total"); err != nil {
		return err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCalc(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	kind, err := storage.ParseKind(cfg.Stream)
	if err != nil {
		return dispense.Configuration("%v", err)
	}
	if kind != storage.KindPredictoor {
		return dispense.Configuration("calc supports %s only, got %s", storage.KindPredictoor, kind)
	}
	if cfg.CSVDir == "" {
		return dispense.Configuration("csv dir is required")
	}
	total, err := decimal.NewFromString(cfg.Total)
	if err != nil {
		return dispense.Configuration("invalid total %q: %v", cfg.Total, err)
	}

	store, err := storage.NewCSVStore(cfg.CSVDir)
	if err != nil {
		return err
	}
	if store.Exists(storage.RewardsFile(kind)) {
		return dispense.Configuration("%s already exists in %s", storage.RewardsFile(kind), cfg.CSVDir)
	}

	ctx, stop := signalContext()
	defer stop()

	if total.IsZero() {
		if total, err = weeklyVested(ctx, cfg, logger); err != nil {
			return err
		}
	}

	perf, err := store.LoadPredictoorPerformance(cfg.RewardChainID)
	if err != nil {
		return err
	}
	table, err := reward.CalcPredictoorRewards(perf, total)
	if err != nil {
		return err
	}
	if err := store.SaveRewards(ctx, kind, table); err != nil {
		return err
	}

	if cfg.PGDSN != "" {
		pg, err := pgstore.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := pg.SaveRewards(ctx, kind, table); err != nil {
			return err
		}
	}

	logger.Info("rewards calculated",
		zap.String("stream", string(kind)),
		zap.String("total", total.String()),
		zap.Int("contracts", len(table)),
		zap.String("allocated", reward.Flatten(table).Total().String()),
	)
	return nil
}

// weeklyVested reads the amount released by the vesting wallet in the week
// starting at the configured start date.
func weeklyVested(ctx context.Context, cfg config.CalcConfig, logger *zap.Logger) (decimal.Decimal, error) {
	if cfg.StartDate == "" {
		return decimal.Zero, dispense.Configuration("total is 0 and no start date was given")
	}
	start, err := config.ParseDate(cfg.StartDate)
	if err != nil {
		return decimal.Zero, dispense.Configuration("start date: %v", err)
	}

	bindings, err := resolveNetwork(cfg.NetworkConfig)
	if err != nil {
		return decimal.Zero, err
	}
	wallet, err := bindings.Address(network.VestingWallet)
	if err != nil {
		return decimal.Zero, dispense.Configuration("%v", err)
	}
	token, err := bindings.Address(network.Ocean)
	if err != nil {
		return decimal.Zero, dispense.Configuration("%v", err)
	}
	if bindings.RPCURL == "" {
		return decimal.Zero, dispense.Configuration("no rpc url, set --rpc or %s", network.RPCEnvVar(bindings.Network))
	}

	client, err := chain.NewClient(ctx, bindings.RPCURL)
	if err != nil {
		return decimal.Zero, err
	}
	defer client.Close()

	meta, err := bindings.Tokens.Lookup(ctx, client, token, logger)
	if err != nil {
		return decimal.Zero, err
	}
	wei, err := contracts.WeeklyVested(ctx, client, wallet, token, start)
	if err != nil {
		return decimal.Zero, fmt.Errorf("vesting wallet %s: %w", wallet.Hex(), err)
	}
	amount := contracts.FromWei(wei, meta.Decimals)
	logger.Info("weekly vested amount",
		zap.String("wallet", wallet.Hex()),
		zap.String("token", meta.Symbol),
		zap.Time("week_start", start),
		zap.String("amount", amount.String()),
	)
	return amount, nil
}
