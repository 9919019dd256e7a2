package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// fakeCaller answers eth_call by method name. handlers receive the unpacked
// arguments and return values to pack as outputs.
type fakeCaller struct {
	parsed   []abi.ABI
	handlers map[string]func(to common.Address, args []interface{}) ([]interface{}, error)
	calls    []string
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	for _, parsed := range f.parsed {
		method, err := parsed.MethodById(msg.Data[:4])
		if err != nil {
			continue
		}
		handler, ok := f.handlers[method.Name]
		if !ok {
			return nil, fmt.Errorf("execution reverted")
		}
		args, err := method.Inputs.Unpack(msg.Data[4:])
		if err != nil {
			return nil, err
		}
		f.calls = append(f.calls, method.Name)
		out, err := handler(*msg.To, args)
		if err != nil {
			return nil, err
		}
		return method.Outputs.Pack(out...)
	}
	return nil, fmt.Errorf("unknown selector %x", msg.Data[:4])
}
