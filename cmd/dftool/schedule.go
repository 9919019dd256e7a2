package main

import (
	"context"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"rewardEngine/internal/config"
	"rewardEngine/internal/schedule"
)

func scheduleFlags(fs *pflag.FlagSet) {
	checkpointFlags(fs)
	fs.String("cron", "0 0 * * 4", "checkpoint schedule (cron spec or @every duration)")
}

func runSchedule(cmd *cobra.Command, _ []string) error {
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

	runner := schedule.New(ctx, logger)
	_, err = runner.Add(string(cmdCheckpoint), cfg.Cron, func(ctx context.Context) error {
		return checkpointer.Checkpoint(ctx).Err()
	})
	if err != nil {
		return err
	}
	logger.Info("checkpoint scheduled", zap.String("cron", cfg.Cron))

	runner.Run()
	return nil
}
