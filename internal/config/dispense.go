package config

import (
	"time"

	"github.com/spf13/pflag"
)

// DispenseConfig holds configuration for the dispense_active command.
type DispenseConfig struct {
	NetworkConfig
	Stream      string
	CSVDir      string
	DFRewards   string
	Token       string
	BatchSize   int
	BatchNumber int
	MaxRetries  int
	RetryDelay  time.Duration
	ZeroAmounts string
	// Rewards is where reward tables are read from: csv or postgres.
	Rewards string
	// Reports is where allocations and reports go: csv, bolt or postgres.
	Reports  string
	BoltPath string
	PGDSN    string
	Key      string
	TxWait   time.Duration
}

// LoadDispense merges config file, environment variables, and flags into DispenseConfig.
func LoadDispense(cfgFile string, flags *pflag.FlagSet) (DispenseConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]any{
		"batch-size":   200,
		"batch-number": -1,
		"max-retries":  3,
		"retry-delay":  10 * time.Second,
		"zero-amounts": "audit",
		"rewards":      "csv",
		"reports":      "csv",
		"bolt-path":    "./data/dftool.db",
		"tx-wait":      2 * time.Minute,
	})
	if err != nil {
		return DispenseConfig{}, err
	}
	network, err := loadNetwork(v)
	if err != nil {
		return DispenseConfig{}, err
	}

	return DispenseConfig{
		NetworkConfig: network,
		Stream:        v.GetString("stream"),
		CSVDir:        v.GetString("csv-dir"),
		DFRewards:     v.GetString("dfrewards-addr"),
		Token:         v.GetString("token-addr"),
		BatchSize:     v.GetInt("batch-size"),
		BatchNumber:   v.GetInt("batch-number"),
		MaxRetries:    v.GetInt("max-retries"),
		RetryDelay:    v.GetDuration("retry-delay"),
		ZeroAmounts:   v.GetString("zero-amounts"),
		Rewards:       v.GetString("rewards"),
		Reports:       v.GetString("reports"),
		BoltPath:      v.GetString("bolt-path"),
		PGDSN:         v.GetString("pg-dsn"),
		Key:           v.GetString("key"),
		TxWait:        v.GetDuration("tx-wait"),
	}, nil
}
