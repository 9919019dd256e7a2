package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type fakeBackend struct {
	estimateErr error
	status      uint64
	sent        []*types.Transaction
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return big.NewInt(23295), nil }
func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 7, nil
}
func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) { return big.NewInt(100), nil }
func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 50000, f.estimateErr
}
func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}
func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	return &types.Receipt{TxHash: hash, Status: f.status}, nil
}
func (f *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func newTestTransactor(t *testing.T, backend Backend) *Transactor {
	t.Helper()
	signer, err := NewSigner(devKey)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	return NewTransactor(backend, signer, time.Second, nil)
}

func TestTransact(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusSuccessful}
	tr := newTestTransactor(t, backend)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	receipt, err := tr.Transact(context.Background(), to, []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Transact: %v", err)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("sent %d txs, want 1", len(backend.sent))
	}
	tx := backend.sent[0]
	if tx.Nonce() != 7 || tx.Gas() != 50000 || *tx.To() != to {
		t.Fatalf("unexpected tx nonce=%d gas=%d to=%s", tx.Nonce(), tx.Gas(), tx.To().Hex())
	}
	if receipt.TxHash != tx.Hash() {
		t.Fatalf("receipt hash mismatch")
	}
}

func TestTransactRevertedReceipt(t *testing.T) {
	backend := &fakeBackend{status: types.ReceiptStatusFailed}
	tr := newTestTransactor(t, backend)

	_, err := tr.Transact(context.Background(), common.Address{}, nil)
	if !errors.Is(err, ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
}

func TestTransactRevertOnEstimate(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("execution reverted: not owner")}
	tr := newTestTransactor(t, backend)

	_, err := tr.Transact(context.Background(), common.Address{}, nil)
	if !errors.Is(err, ErrReverted) {
		t.Fatalf("expected ErrReverted, got %v", err)
	}
	if len(backend.sent) != 0 {
		t.Fatalf("nothing should be sent")
	}
}

func TestTransactEstimateNetworkError(t *testing.T) {
	backend := &fakeBackend{estimateErr: errors.New("dial tcp: i/o timeout")}
	tr := newTestTransactor(t, backend)

	_, err := tr.Transact(context.Background(), common.Address{}, nil)
	if err == nil || errors.Is(err, ErrReverted) {
		t.Fatalf("expected non-revert error, got %v", err)
	}
}
