package contracts

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const dfRewardsABIJSON = `[
  {"inputs": [{"internalType": "address[]", "name": "_tos", "type": "address[]"}, {"internalType": "uint256[]", "name": "_values", "type": "uint256[]"}, {"internalType": "address", "name": "tokenAddress", "type": "address"}], "name": "allocate", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [{"internalType": "address", "name": "_to", "type": "address"}, {"internalType": "address", "name": "tokenAddress", "type": "address"}], "name": "claimable", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const erc20ABIStringJSON = `[
  {"inputs": [], "name": "decimals", "outputs": [{"type": "uint8"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "symbol", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "account", "type": "address"}], "name": "balanceOf", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "owner", "type": "address"}, {"name": "spender", "type": "address"}], "name": "allowance", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"name": "spender", "type": "address"}, {"name": "amount", "type": "uint256"}], "name": "approve", "outputs": [{"type": "bool"}], "stateMutability": "nonpayable", "type": "function"}
]`

const erc20ABIBytes32JSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "name", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

const feeDistributorABIJSON = `[
  {"inputs": [], "name": "checkpoint_total_supply", "outputs": [], "stateMutability": "nonpayable", "type": "function"},
  {"inputs": [], "name": "checkpoint_token", "outputs": [], "stateMutability": "nonpayable", "type": "function"}
]`

const vestingWalletABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "token", "type": "address"}, {"internalType": "uint64", "name": "timestamp", "type": "uint64"}], "name": "vestedAmount", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"}
]`

const safeABIJSON = `[
  {"inputs": [], "name": "nonce", "outputs": [{"type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [
    {"name": "to", "type": "address"},
    {"name": "value", "type": "uint256"},
    {"name": "data", "type": "bytes"},
    {"name": "operation", "type": "uint8"},
    {"name": "safeTxGas", "type": "uint256"},
    {"name": "baseGas", "type": "uint256"},
    {"name": "gasPrice", "type": "uint256"},
    {"name": "gasToken", "type": "address"},
    {"name": "refundReceiver", "type": "address"},
    {"name": "_nonce", "type": "uint256"}
  ], "name": "getTransactionHash", "outputs": [{"type": "bytes32"}], "stateMutability": "view", "type": "function"}
]`

type lazyABI struct {
	json   string
	once   sync.Once
	parsed abi.ABI
	err    error
}

func (l *lazyABI) get() (abi.ABI, error) {
	l.once.Do(func() {
		l.parsed, l.err = abi.JSON(strings.NewReader(l.json))
	})
	return l.parsed, l.err
}

var (
	dfRewardsABI      = &lazyABI{json: dfRewardsABIJSON}
	erc20ABIString    = &lazyABI{json: erc20ABIStringJSON}
	erc20ABIBytes32   = &lazyABI{json: erc20ABIBytes32JSON}
	feeDistributorABI = &lazyABI{json: feeDistributorABIJSON}
	vestingWalletABI  = &lazyABI{json: vestingWalletABIJSON}
	safeABI           = &lazyABI{json: safeABIJSON}
)

// DFRewardsABI returns the parsed DFRewards ABI.
func DFRewardsABI() (abi.ABI, error) { return dfRewardsABI.get() }

// ERC20ABI returns the parsed ERC20 ABI with string metadata methods.
func ERC20ABI() (abi.ABI, error) { return erc20ABIString.get() }

func FeeDistributorABI() (abi.ABI, error) { return feeDistributorABI.get() }

func VestingWalletABI() (abi.ABI, error) { return vestingWalletABI.get() }

func SafeABI() (abi.ABI, error) { return safeABI.get() }
