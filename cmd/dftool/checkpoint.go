package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rewardEngine/internal/chain"
	"rewardEngine/internal/config"
	"rewardEngine/internal/dispense"
	"rewardEngine/internal/feedist"
	"rewardEngine/internal/multisig"
	"rewardEngine/internal/network"
	"rewardEngine/internal/retry"
)

func checkpointFlags(fs *pflag.FlagSet) {
	networkFlags(fs, network.SapphireMainnetChainID)
	fs.String("feedist-addr", "", "FeeDistributor contract, defaults to the address file entry")
	fs.String("multisig-addr", "", "Safe multisig, defaults to the address file entry")
	fs.String("safe-service-url", "", "Safe transaction service base URL; without it failures are not escalated")
	fs.Int("fallback-attempts", 3, "multisig proposal attempts per operation")
	fs.Duration("fallback-delay", time.Minute, "delay between multisig proposal attempts")
	fs.Duration("tx-wait", 2*time.Minute, "how long to wait for each transaction receipt")
}

func runCheckpoint(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadCheckpoint(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	checkpointer, closeFn, err := newCheckpointer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	return checkpointer.Checkpoint(ctx).Err()
}

// newCheckpointer wires the FeeDistributor checkpoint to the chain and, when
// a transaction service is configured, to the network's Safe.
func newCheckpointer(ctx context.Context, cfg config.CheckpointConfig, logger *zap.Logger) (*feedist.Checkpointer, func(), error) {
	if cfg.Key == "" {
		return nil, nil, dispense.Configuration("no signing key, set DFTOOL_KEY")
	}
	signer, err := chain.NewSigner(cfg.Key)
	if err != nil {
		return nil, nil, dispense.Configuration("signing key: %v", err)
	}

	bindings, err := resolveNetwork(cfg.NetworkConfig)
	if err != nil {
		return nil, nil, err
	}
	feeDistributor, err := pickAddress(bindings, cfg.FeeDistributor, network.FeeDistributor)
	if err != nil {
		return nil, nil, err
	}
	if bindings.RPCURL == "" {
		return nil, nil, dispense.Configuration("no rpc url, set --rpc or %s", network.RPCEnvVar(bindings.Network))
	}

	client, err := chain.NewClient(ctx, bindings.RPCURL)
	if err != nil {
		return nil, nil, err
	}

	var channel dispense.MultipartyChannel
	if cfg.SafeServiceURL != "" {
		safeAddr, err := pickAddress(bindings, cfg.Multisig, network.Multisig)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		safe, err := multisig.NewSafe(multisig.Config{
			ServiceURL: cfg.SafeServiceURL,
			Safe:       safeAddr,
		}, client, signer, logger)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		channel = safe
	} else {
		logger.Warn("no safe service url, failed checkpoints will not be escalated")
	}

	checkpointer, err := feedist.NewCheckpointer(feedist.Config{
		FeeDistributor: feeDistributor,
		Fallback:       retry.Fixed(cfg.FallbackAttempts, cfg.FallbackDelay),
	}, chain.NewTransactor(client, signer, cfg.TxWait, logger), channel, logger)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return checkpointer, client.Close, nil
}
