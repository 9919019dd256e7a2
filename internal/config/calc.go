package config

import (
	"github.com/spf13/pflag"
)

// CalcConfig holds configuration for the calc command.
type CalcConfig struct {
	NetworkConfig
	Stream    string
	CSVDir    string
	Total     string
	StartDate string
	// RewardChainID selects the predictoor summary file to read.
	RewardChainID uint64
	PGDSN         string
}

// LoadCalc merges config file, environment variables, and flags into CalcConfig.
func LoadCalc(cfgFile string, flags *pflag.FlagSet) (CalcConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"chain-id":        uint64(11155111),
		"reward-chain-id": uint64(23294),
	})
	if err != nil {
		return CalcConfig{}, err
	}
	network, err := loadNetwork(v)
	if err != nil {
		return CalcConfig{}, err
	}

	return CalcConfig{
		NetworkConfig: network,
		Stream:        v.GetString("stream"),
		CSVDir:        v.GetString("csv-dir"),
		Total:         v.GetString("total"),
		StartDate:     v.GetString("start-date"),
		RewardChainID: v.GetUint64("reward-chain-id"),
		PGDSN:         v.GetString("pg-dsn"),
	}, nil
}
