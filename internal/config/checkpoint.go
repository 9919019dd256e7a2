package config

import (
	"time"

	"github.com/spf13/pflag"
)

// CheckpointConfig holds configuration for checkpoint_feedist and schedule.
type CheckpointConfig struct {
	NetworkConfig
	FeeDistributor   string
	Multisig         string
	SafeServiceURL   string
	FallbackAttempts int
	FallbackDelay    time.Duration
	Key              string
	TxWait           time.Duration
	Cron             string
}

// LoadCheckpoint merges config file, environment variables, and flags into CheckpointConfig.
func LoadCheckpoint(cfgFile string, flags *pflag.FlagSet) (CheckpointConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"fallback-attempts": 3,
		"fallback-delay":    time.Minute,
		"tx-wait":           2 * time.Minute,
		"cron":              "0 0 * * 4",
	})
	if err != nil {
		return CheckpointConfig{}, err
	}
	network, err := loadNetwork(v)
	if err != nil {
		return CheckpointConfig{}, err
	}

	return CheckpointConfig{
		NetworkConfig:    network,
		FeeDistributor:   v.GetString("feedist-addr"),
		Multisig:         v.GetString("multisig-addr"),
		SafeServiceURL:   v.GetString("safe-service-url"),
		FallbackAttempts: v.GetInt("fallback-attempts"),
		FallbackDelay:    v.GetDuration("fallback-delay"),
		Key:              v.GetString("key"),
		TxWait:           v.GetDuration("tx-wait"),
		Cron:             v.GetString("cron"),
	}, nil
}
