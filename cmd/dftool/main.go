package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"rewardEngine/internal/config"
	"rewardEngine/internal/network"
)

type commandTag string

const (
	cmdPredictoorData commandTag = "predictoor_data"
	cmdCalc           commandTag = "calc"
	cmdDispense       commandTag = "dispense_active"
	cmdCheckpoint     commandTag = "checkpoint_feedist"
	cmdSchedule       commandTag = "schedule"
)

type command struct {
	tag   commandTag
	use   string
	short string
	flags func(*pflag.FlagSet)
	run   func(cmd *cobra.Command, args []string) error
}

// commands is the complete set of dftool subcommands.
var commands = []command{
	{
		tag:   cmdPredictoorData,
		use:   "predictoor_data ST FIN CSV_DIR",
		short: "Fetch predictoor contracts and predictions, write per-account summaries",
		flags: predictoorDataFlags,
		run:   runPredictoorData,
	},
	{
		tag:   cmdCalc,
		use:   "calc STREAM CSV_DIR TOT",
		short: "Calculate a reward table from fetched data",
		flags: calcFlags,
		run:   runCalc,
	},
	{
		tag:   cmdDispense,
		use:   "dispense_active STREAM CSV_DIR",
		short: "Dispense a reward table to the DFRewards contract in batches",
		flags: dispenseFlags,
		run:   runDispense,
	},
	{
		tag:   cmdCheckpoint,
		use:   "checkpoint_feedist",
		short: "Checkpoint the FeeDistributor, proposing to the multisig on failure",
		flags: checkpointFlags,
		run:   runCheckpoint,
	},
	{
		tag:   cmdSchedule,
		use:   "schedule",
		short: "Run the FeeDistributor checkpoint on a cron schedule",
		flags: scheduleFlags,
		run:   runSchedule,
	},
}

func main() {
	root := &cobra.Command{
		Use:          "dftool",
		Short:        "Data farming reward tool",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	for _, c := range commands {
		sub := &cobra.Command{
			Use:   c.use,
			Short: c.short,
			RunE:  c.run,
		}
		c.flags(sub.Flags())
		sub.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
		root.AddCommand(sub)
	}

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func networkFlags(fs *pflag.FlagSet, chainID uint64) {
	fs.Uint64("chain-id", chainID, "chain id of the target network")
	fs.String("address-file", os.Getenv("ADDRESS_FILE"), "Ocean address.json")
	fs.String("rpc", "", "RPC URL, defaults to <NETWORK>_RPC_URL")
	fs.String("subgraph-url", "", "subgraph URL override")
	fs.StringSlice("address", nil, "contract address overrides (comma-separated Name=0x...)")
}

// bindArgs copies positional arguments into the named flags so viper sees a
// single source for them.
func bindArgs(cmd *cobra.Command, args []string, names ...string) error {
	if len(args) > len(names) {
		return fmt.Errorf("too many arguments, want at most %d", len(names))
	}
	for i, arg := range args {
		if err := cmd.Flags().Set(names[i], arg); err != nil {
			return fmt.Errorf("%s: %w", names[i], err)
		}
	}
	return nil
}

func resolveNetwork(cfg config.NetworkConfig) (network.Bindings, error) {
	registry := network.NewRegistry(cfg.AddressFile, network.Overrides{
		RPCURL:      cfg.RPCURL,
		SubgraphURL: cfg.SubgraphURL,
		Addresses:   cfg.Addresses,
	}, nil)
	return registry.Resolve(cfg.ChainID)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level != "" {
		if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
