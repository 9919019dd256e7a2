package config

import (
	"time"

	"github.com/spf13/pflag"
)

// PredictoorDataConfig holds configuration for the predictoor_data command.
type PredictoorDataConfig struct {
	NetworkConfig
	Start         string
	End           string
	CSVDir        string
	ErrorsFile    string
	Retries       int
	RetryDelay    time.Duration
	PageSize      int
	Window        time.Duration
	OnlyContracts bool
}

// LoadPredictoorData merges config file, environment variables, and flags into PredictoorDataConfig.
func LoadPredictoorData(cfgFile string, flags *pflag.FlagSet) (PredictoorDataConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"retries":     1,
		"retry-delay": 10 * time.Second,
		"page-size":   1000,
		"window":      24 * time.Hour,
		"errors":      "",
	})
	if err != nil {
		return PredictoorDataConfig{}, err
	}
	network, err := loadNetwork(v)
	if err != nil {
		return PredictoorDataConfig{}, err
	}

	return PredictoorDataConfig{
		NetworkConfig: network,
		Start:         v.GetString("start"),
		End:           v.GetString("end"),
		CSVDir:        v.GetString("csv-dir"),
		ErrorsFile:    v.GetString("errors"),
		Retries:       v.GetInt("retries"),
		RetryDelay:    v.GetDuration("retry-delay"),
		PageSize:      v.GetInt("page-size"),
		Window:        v.GetDuration("window"),
		OnlyContracts: v.GetBool("only-contracts"),
	}, nil
}
