package network

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"rewardEngine/internal/contracts"
)

const (
	DevChainID             uint64 = 8996
	SapphireMainnetChainID uint64 = 23294
	SapphireTestnetChainID uint64 = 23295
	SepoliaChainID         uint64 = 11155111
)

// Contract names as they appear in the address file.
const (
	Ocean          = "Ocean"
	DFRewards      = "DFRewards"
	FeeDistributor = "veFeeDistributor"
	VestingWallet  = "VestingWalletV0"
	Multisig       = "Multisig"
)

var chainNames = map[uint64]string{
	DevChainID:             "development",
	1:                      "mainnet",
	10:                     "optimism",
	137:                    "polygon",
	SapphireMainnetChainID: "sapphire-mainnet",
	SapphireTestnetChainID: "sapphire-testnet",
	SepoliaChainID:         "sepolia",
}

// Name returns the network name for a chain id.
func Name(chainID uint64) (string, error) {
	name, ok := chainNames[chainID]
	if !ok {
		return "", fmt.Errorf("unknown chain id %d", chainID)
	}
	return name, nil
}

// ChainID is the inverse of Name.
func ChainID(name string) (uint64, error) {
	for id, n := range chainNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown network %q", name)
}

// RPCEnvVar is the environment variable holding a network's RPC URL, e.g.
// SAPPHIRE_MAINNET_RPC_URL.
func RPCEnvVar(network string) string {
	return strings.ToUpper(strings.ReplaceAll(network, "-", "_")) + "_RPC_URL"
}

// SubgraphURL returns the default Ocean subgraph endpoint of a network.
func SubgraphURL(chainID uint64) (string, error) {
	name, err := Name(chainID)
	if err != nil {
		return "", err
	}
	if chainID == DevChainID {
		return "http://localhost:9000/subgraphs/name/oceanprotocol/ocean-subgraph", nil
	}
	return fmt.Sprintf("https://v4.subgraph.%s.oceanprotocol.com/subgraphs/name/oceanprotocol/ocean-subgraph", name), nil
}

// Bindings is everything a component needs to talk to one network.
type Bindings struct {
	ChainID     uint64
	Network     string
	RPCURL      string
	SubgraphURL string
	Addresses   map[string]common.Address
	// Tokens caches ERC20 metadata for this network.
	Tokens *contracts.TokenMetaCache
}

// Address returns a named contract address.
func (b Bindings) Address(name string) (common.Address, error) {
	addr, ok := b.Addresses[name]
	if !ok {
		return common.Address{}, fmt.Errorf("no %s address for %s", name, b.Network)
	}
	return addr, nil
}

// Names lists the known contract names in sorted order.
func (b Bindings) Names() []string {
	out := make([]string, 0, len(b.Addresses))
	for name := range b.Addresses {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Overrides replace values resolved from the address file or environment.
type Overrides struct {
	RPCURL      string
	SubgraphURL string
	Addresses   map[string]string
}

// Registry resolves bindings at most once per chain id.
type Registry struct {
	addressFile string
	getenv      func(string) string
	overrides   Overrides

	mu       sync.Mutex
	resolved map[uint64]Bindings
}

// NewRegistry builds a registry. An empty addressFile yields bindings with
// only the overridden addresses. getenv defaults to os.Getenv.
func NewRegistry(addressFile string, overrides Overrides, getenv func(string) string) *Registry {
	if getenv == nil {
		getenv = os.Getenv
	}
	return &Registry{
		addressFile: addressFile,
		getenv:      getenv,
		overrides:   overrides,
		resolved:    make(map[uint64]Bindings),
	}
}

func (r *Registry) Resolve(chainID uint64) (Bindings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.resolved[chainID]; ok {
		return b, nil
	}
	b, err := r.resolve(chainID)
	if err != nil {
		return Bindings{}, err
	}
	r.resolved[chainID] = b
	return b, nil
}

func (r *Registry) resolve(chainID uint64) (Bindings, error) {
	name, err := Name(chainID)
	if err != nil {
		return Bindings{}, err
	}
	b := Bindings{
		ChainID:   chainID,
		Network:   name,
		Addresses: make(map[string]common.Address),
		Tokens:    contracts.NewTokenMetaCache(),
	}

	if r.addressFile != "" {
		addrs, err := LoadAddressFile(r.addressFile, name, chainID)
		if err != nil {
			return Bindings{}, err
		}
		b.Addresses = addrs
	}
	for key, value := range r.overrides.Addresses {
		if value == "" {
			continue
		}
		if !common.IsHexAddress(value) {
			return Bindings{}, fmt.Errorf("%s: invalid address %q", key, value)
		}
		b.Addresses[key] = common.HexToAddress(value)
	}

	b.RPCURL = r.overrides.RPCURL
	if b.RPCURL == "" {
		b.RPCURL = r.getenv(RPCEnvVar(name))
	}

	b.SubgraphURL = r.overrides.SubgraphURL
	if b.SubgraphURL == "" {
		if b.SubgraphURL, err = SubgraphURL(chainID); err != nil {
			return Bindings{}, err
		}
	}
	return b, nil
}

// LoadAddressFile reads the contract addresses of one network from an Ocean
// style address.json. Entries that are not plain addresses are ignored.
func LoadAddressFile(path, network string, chainID uint64) (map[string]common.Address, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read address file: %w", err)
	}
	var file map[string]map[string]json.RawMessage
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse address file %s: %w", path, err)
	}
	entries, ok := file[network]
	if !ok {
		return nil, fmt.Errorf("can't find %s in %s", network, path)
	}

	if rawID, ok := entries["chainId"]; ok {
		var id uint64
		if err := json.Unmarshal(rawID, &id); err != nil {
			return nil, fmt.Errorf("%s: chainId: %w", network, err)
		}
		if id != chainID {
			return nil, fmt.Errorf("%s: chainId %d in address file, want %d", network, id, chainID)
		}
	}

	out := make(map[string]common.Address, len(entries))
	for key, value := range entries {
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			continue
		}
		if !common.IsHexAddress(s) {
			continue
		}
		out[key] = common.HexToAddress(s)
	}
	return out, nil
}
