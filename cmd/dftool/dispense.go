package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rewardEngine/internal/chain"
	"rewardEngine/internal/config"
	"rewardEngine/internal/contracts"
	"rewardEngine/internal/dispense"
	"rewardEngine/internal/ledger"
	"rewardEngine/internal/network"
	"rewardEngine/internal/storage"
	boltstore "rewardEngine/internal/storage/bolt"
	pgstore "rewardEngine/internal/storage/postgres"
)

func dispenseFlags(fs *pflag.FlagSet) {
	networkFlags(fs, network.SapphireMainnetChainID)
	fs.String("stream", "", "reward stream (predictoor_rose, volume)")
	fs.String("csv-dir", "", "directory holding the reward table")
	fs.String("dfrewards-addr", "", "DFRewards contract, defaults to the address file entry")
	fs.String("token-addr", "", "reward token, defaults to the address file Ocean entry")
	fs.Int("batch-size", 200, "recipients per batch")
	fs.Int("batch-number", -1, "dispense only this batch (0-based), -1 for all")
	fs.Int("max-retries", 3, "retries per batch after the first attempt")
	fs.Duration("retry-delay", 10*time.Second, "delay between batch attempts")
	fs.String("zero-amounts", "audit", "zero amount policy (audit, include)")
	fs.String("rewards", "csv", "reward table source (csv, postgres)")
	fs.String("reports", "csv", "allocation and report store (csv, bolt, postgres)")
	fs.String("bolt-path", "./data/dftool.db", "bbolt database path")
	fs.String("pg-dsn", "", "Postgres DSN")
	fs.Duration("tx-wait", 2*time.Minute, "how long to wait for each transaction receipt")
}

type dispenseStores struct {
	rewards     storage.RewardStore
	allocations storage.AllocationStore
	reports     dispense.ReportStore
	closers     []func()
}

func (s *dispenseStores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func runDispense(cmd *cobra.Command, args []string) error {
	if err := bindArgs(cmd, args, "stream", "csv-dir"); err != nil {
		return err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDispense(cfgFile, cmd.Flags())
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
	zeroPolicy, err := dispense.ParseZeroPolicy(cfg.ZeroAmounts)
	if err != nil {
		return err
	}
	if cfg.Key == "" {
		return dispense.Configuration("no signing key, set DFTOOL_KEY")
	}
	signer, err := chain.NewSigner(cfg.Key)
	if err != nil {
		return dispense.Configuration("signing key: %v", err)
	}

	bindings, err := resolveNetwork(cfg.NetworkConfig)
	if err != nil {
		return err
	}
	dfRewards, err := pickAddress(bindings, cfg.DFRewards, network.DFRewards)
	if err != nil {
		return err
	}
	token, err := pickAddress(bindings, cfg.Token, network.Ocean)
	if err != nil {
		return err
	}
	if bindings.RPCURL == "" {
		return dispense.Configuration("no rpc url, set --rpc or %s", network.RPCEnvVar(bindings.Network))
	}

	ctx, stop := signalContext()
	defer stop()

	stores, err := openDispenseStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	table, err := stores.rewards.LoadRewards(ctx, kind)
	if err != nil {
		return err
	}
	alloc, err := storage.Shape(kind, table)
	if err != nil {
		return dispense.Configuration("%s rewards: %v", kind, err)
	}

	client, err := chain.NewClient(ctx, bindings.RPCURL)
	if err != nil {
		return err
	}
	defer client.Close()

	meta, err := bindings.Tokens.Lookup(ctx, client, token, logger)
	if err != nil {
		return err
	}
	tx := chain.NewTransactor(client, signer, cfg.TxWait, logger)
	payout, err := ledger.NewDFRewards(ledger.Config{
		DFRewards: dfRewards,
		Token:     token,
		Decimals:  meta.Decimals,
	}, client, tx, logger)
	if err != nil {
		return err
	}

	var batchIndex *int
	if cfg.BatchNumber >= 0 {
		idx := cfg.BatchNumber
		batchIndex = &idx
	}
	runID := uuid.NewString()
	engine := dispense.NewEngine(dispense.Config{
		RunID:      runID,
		BatchSize:  cfg.BatchSize,
		BatchIndex: batchIndex,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		ZeroPolicy: zeroPolicy,
	}, payout, stores.reports, logger)

	if err := stores.allocations.SaveAllocation(ctx, runID, alloc); err != nil {
		return fmt.Errorf("save allocation: %w", err)
	}

	logger.Info("dispensing",
		zap.String("run_id", runID),
		zap.String("stream", string(kind)),
		zap.Uint64("chain_id", bindings.ChainID),
		zap.String("dfrewards", dfRewards.Hex()),
		zap.String("token", meta.Symbol),
		zap.String("from", signer.Address().Hex()),
		zap.Int("recipients", len(alloc)),
		zap.String("total", alloc.Total().String()),
	)

	report, err := engine.Run(ctx, alloc)
	if err != nil {
		return err
	}
	if failed := report.FailedBatches(); len(failed) > 0 {
		return fmt.Errorf("run %s: batches %v not paid, rerun to retry them", report.RunID, failed)
	}
	return nil
}

// pickAddress prefers an explicit flag value over the named binding.
func pickAddress(bindings network.Bindings, explicit, name string) (common.Address, error) {
	if explicit != "" {
		addr, err := contracts.ParseAddress(explicit)
		if err != nil {
			return common.Address{}, dispense.Configuration("%s: %v", name, err)
		}
		return addr, nil
	}
	addr, err := bindings.Address(name)
	if err != nil {
		return common.Address{}, dispense.Configuration("%v", err)
	}
	return addr, nil
}

func openDispenseStores(ctx context.Context, cfg config.DispenseConfig) (*dispenseStores, error) {
	stores := &dispenseStores{}
	var (
		csvStore *storage.CSVStore
		pg       *pgstore.Store
	)
	csvDir := func() (*storage.CSVStore, error) {
		if csvStore != nil {
			return csvStore, nil
		}
		if cfg.CSVDir == "" {
			return nil, dispense.Configuration("csv dir is required")
		}
		var err error
		csvStore, err = storage.NewCSVStore(cfg.CSVDir)
		return csvStore, err
	}
	postgres := func() (*pgstore.Store, error) {
		if pg != nil {
			return pg, nil
		}
		if cfg.PGDSN == "" {
			return nil, dispense.Configuration("pg dsn is required")
		}
		var err error
		if pg, err = pgstore.NewStore(ctx, cfg.PGDSN); err != nil {
			return nil, err
		}
		stores.closers = append(stores.closers, pg.Close)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	}

	fail := func(err error) (*dispenseStores, error) {
		stores.Close()
		return nil, err
	}

	switch cfg.Rewards {
	case "csv":
		s, err := csvDir()
		if err != nil {
			return fail(err)
		}
		stores.rewards = s
	case "postgres":
		s, err := postgres()
		if err != nil {
			return fail(err)
		}
		stores.rewards = s
	default:
		return fail(dispense.Configuration("unknown reward source %q", cfg.Rewards))
	}

	switch cfg.Reports {
	case "csv":
		s, err := csvDir()
		if err != nil {
			return fail(err)
		}
		stores.allocations, stores.reports = s, s
	case "bolt":
		s, err := boltstore.Open(cfg.BoltPath)
		if err != nil {
			return fail(err)
		}
		stores.closers = append(stores.closers, func() { s.Close() })
		stores.allocations, stores.reports = s, s
	case "postgres":
		s, err := postgres()
		if err != nil {
			return fail(err)
		}
		stores.allocations, stores.reports = s, s
	default:
		return fail(dispense.Configuration("unknown report store %q", cfg.Reports))
	}
	return stores, nil
}
