package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "DFTOOL"

// NetworkConfig is shared by every command that talks to a chain.
type NetworkConfig struct {
	ChainID     uint64
	AddressFile string
	RPCURL      string
	SubgraphURL string
	// Addresses overrides contract addresses from the address file, keyed by
	// contract name.
	Addresses map[string]string
	LogLevel  string
}

// newViper merges defaults, config file, DFTOOL_ environment variables and
// flags.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("dftool")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadNetwork(v *viper.Viper) (NetworkConfig, error) {
	addresses, err := parseKeyValues(getStringSlice(v, "address"))
	if err != nil {
		return NetworkConfig{}, err
	}
	return NetworkConfig{
		ChainID:     v.GetUint64("chain-id"),
		AddressFile: v.GetString("address-file"),
		RPCURL:      v.GetString("rpc"),
		SubgraphURL: v.GetString("subgraph-url"),
		Addresses:   addresses,
		LogLevel:    v.GetString("log-level"),
	}, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

// parseKeyValues turns name=value items into a map.
func parseKeyValues(items []string) (map[string]string, error) {
	out := make(map[string]string, len(items))
	for _, item := range items {
		key, value, ok := strings.Cut(item, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("invalid address override %q, want Name=0x...", item)
		}
		out[key] = value
	}
	return out, nil
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
