package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rewardEngine/internal/aggregate"
	"rewardEngine/internal/chain"
	"rewardEngine/internal/config"
	"rewardEngine/internal/dispense"
	"rewardEngine/internal/model"
	"rewardEngine/internal/network"
	"rewardEngine/internal/retry"
	"rewardEngine/internal/storage"
	"rewardEngine/internal/subgraph"
)

func predictoorDataFlags(fs *pflag.FlagSet) {
	networkFlags(fs, network.SapphireMainnetChainID)
	fs.String("start", "", "start: block number, YYYY-MM-DD, YYYY-MM-DD_HH:MM or latest")
	fs.String("end", "", "end: block number, YYYY-MM-DD, YYYY-MM-DD_HH:MM or latest")
	fs.String("csv-dir", "", "output directory")
	fs.String("errors", "", "malformed record JSONL (default <csv-dir>/predictoor_errors_<chain>.jsonl)")
	fs.Int("retries", 1, "subgraph query attempts")
	fs.Duration("retry-delay", 10*time.Second, "delay between subgraph query attempts")
	fs.Int("page-size", 1000, "subgraph page size")
	fs.Duration("window", 24*time.Hour, "predictions are fetched one window at a time")
	fs.Bool("only-contracts", false, "fetch predictoor contracts only")
}

func runPredictoorData(cmd *cobra.Command, args []string) error {
	if err := bindArgs(cmd, args, "start", "end", "csv-dir"); err != nil {
		return err
	}
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPredictoorData(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.CSVDir == "" {
		return dispense.Configuration("csv dir is required")
	}
	bindings, err := resolveNetwork(cfg.NetworkConfig)
	if err != nil {
		return err
	}

	store, err := storage.NewCSVStore(cfg.CSVDir)
	if err != nil {
		return err
	}
	outputs := []string{storage.PredictContractsFile(bindings.ChainID)}
	if !cfg.OnlyContracts {
		outputs = append(outputs,
			storage.PredictoorDataFile(bindings.ChainID),
			storage.PredictoorSummaryFile(bindings.ChainID),
		)
	}
	for _, name := range outputs {
		if store.Exists(name) {
			return dispense.Configuration("%s already exists in %s", name, cfg.CSVDir)
		}
	}

	ctx, stop := signalContext()
	defer stop()

	var start, end time.Time
	var windows []subgraph.Window
	if !cfg.OnlyContracts {
		if start, end, err = resolveWindow(ctx, bindings, cfg.Start, cfg.End); err != nil {
			return err
		}
		if windows, err = subgraph.SplitWindow(start, end, cfg.Window); err != nil {
			return dispense.Configuration("%v", err)
		}
	}

	client, err := subgraph.NewClient(subgraph.Config{
		URL:      bindings.SubgraphURL,
		PageSize: cfg.PageSize,
	}, logger)
	if err != nil {
		return err
	}

	policy := retry.Fixed(cfg.Retries, cfg.RetryDelay)
	policy.Retryable = subgraph.Retryable
	policy.OnRetry = func(attempt int, err error) {
		logger.Warn("subgraph query failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
	}

	var predictContracts []model.PredictContract
	if _, err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		predictContracts, err = client.PredictContracts(ctx, bindings.ChainID)
		return err
	}); err != nil {
		return fmt.Errorf("fetch predict contracts: %w", err)
	}
	if err := store.SavePredictContracts(bindings.ChainID, predictContracts); err != nil {
		return err
	}
	if cfg.OnlyContracts {
		logger.Info("predictoor contracts saved", zap.Int("contracts", len(predictContracts)))
		return nil
	}

	var records []model.Record
	for _, w := range windows {
		var page []model.Record
		if _, err := policy.Do(ctx, func(ctx context.Context) error {
			var err error
			page, err = client.Predictions(ctx, w.Start, w.End)
			return err
		}); err != nil {
			return fmt.Errorf("fetch predictions %d-%d: %w", w.Start, w.End, err)
		}
		records = append(records, page...)
	}

	errorsPath := cfg.ErrorsFile
	if errorsPath == "" {
		errorsPath = filepath.Join(cfg.CSVDir, fmt.Sprintf("predictoor_errors_%d.jsonl", bindings.ChainID))
	}
	agg := aggregate.NewAggregator(aggregate.Config{ChainID: bindings.ChainID}, storage.NewDecodeErrorLog(errorsPath), logger)
	stats, err := agg.Fold(records)
	if err != nil {
		return err
	}

	accounts := agg.Accounts()
	if err := store.SavePredictoorData(bindings.ChainID, accounts); err != nil {
		return err
	}
	if err := store.SavePredictoorSummaries(bindings.ChainID, accounts); err != nil {
		return err
	}

	logger.Info("predictoor data saved",
		zap.Uint64("chain_id", bindings.ChainID),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("contracts", len(predictContracts)),
		zap.Int("windows", len(windows)),
		zap.Int("records", stats.Total),
		zap.Int("malformed", stats.Failed),
		zap.Int("accounts", len(accounts)),
		zap.Int("subjects", len(agg.Subjects())),
	)
	return nil
}

// resolveWindow turns the start and end arguments into times. Block numbers
// are looked up on chain, so an RPC URL is only needed when one is given.
func resolveWindow(ctx context.Context, bindings network.Bindings, startArg, endArg string) (time.Time, time.Time, error) {
	now := time.Now()
	start, err := config.ParsePoint(startArg, now)
	if err != nil {
		return time.Time{}, time.Time{}, dispense.Configuration("start: %v", err)
	}
	end, err := config.ParsePoint(endArg, now)
	if err != nil {
		return time.Time{}, time.Time{}, dispense.Configuration("end: %v", err)
	}

	var client *chain.Client
	if start.IsBlock || end.IsBlock {
		if bindings.RPCURL == "" {
			return time.Time{}, time.Time{}, dispense.Configuration("block bounds need an rpc url, set --rpc or %s", network.RPCEnvVar(bindings.Network))
		}
		client, err = chain.NewClient(ctx, bindings.RPCURL)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		defer client.Close()
	}

	toTime := func(p config.Point) (time.Time, error) {
		if !p.IsBlock {
			return p.Time, nil
		}
		ts, err := client.BlockTimestamp(ctx, p.Block)
		if err != nil {
			return time.Time{}, fmt.Errorf("block %d timestamp: %w", p.Block, err)
		}
		return time.Unix(int64(ts), 0).UTC(), nil
	}

	startTime, err := toTime(start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endTime, err := toTime(end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if endTime.Before(startTime) {
		return time.Time{}, time.Time{}, dispense.Configuration("end %s is before start %s", endTime, startTime)
	}
	return startTime, endTime, nil
}
