package multisig

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"rewardEngine/internal/chain"
	"rewardEngine/internal/contracts"
	"rewardEngine/internal/dispense"
)

const defaultOrigin = "dftool"

type Config struct {
	// ServiceURL is the base URL of the Safe transaction service.
	ServiceURL string
	Safe       common.Address
	Origin     string
	Timeout    time.Duration
}

// Safe proposes transactions to a Safe multisig through its transaction
// service. Owners still have to confirm and execute them.
type Safe struct {
	cfg    Config
	http   *resty.Client
	caller contracts.Caller
	signer *chain.Signer
	logger *zap.Logger
}

var _ dispense.MultipartyChannel = (*Safe)(nil)

func NewSafe(cfg Config, caller contracts.Caller, signer *chain.Signer, logger *zap.Logger) (*Safe, error) {
	if cfg.ServiceURL == "" {
		return nil, dispense.Configuration("safe transaction service url is not set")
	}
	if cfg.Safe == (common.Address{}) {
		return nil, dispense.Configuration("multisig address is not set")
	}
	if signer == nil {
		return nil, dispense.Configuration("multisig proposals need a signer")
	}
	if cfg.Origin == "" {
		cfg.Origin = defaultOrigin
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.ServiceURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Safe{cfg: cfg, http: http, caller: caller, signer: signer, logger: logger}, nil
}

type proposal struct {
	To                      string `json:"to"`
	Value                   string `json:"value"`
	Data                    string `json:"data"`
	Operation               int    `json:"operation"`
	SafeTxGas               string `json:"safeTxGas"`
	BaseGas                 string `json:"baseGas"`
	GasPrice                string `json:"gasPrice"`
	GasToken                string `json:"gasToken"`
	RefundReceiver          string `json:"refundReceiver"`
	Nonce                   string `json:"nonce"`
	ContractTransactionHash string `json:"contractTransactionHash"`
	Sender                  string `json:"sender"`
	Signature               string `json:"signature"`
	Origin                  string `json:"origin"`
}

type pendingPage struct {
	Results []struct {
		Nonce json.Number `json:"nonce"`
	} `json:"results"`
}

// SubmitViaMultiparty signs the Safe transaction hash of payload and posts
// it as a proposal.
func (s *Safe) SubmitViaMultiparty(ctx context.Context, payload dispense.Payload) error {
	to, err := contracts.ParseAddress(payload.To)
	if err != nil {
		return err
	}
	value := payload.Value
	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := s.nextNonce(ctx)
	if err != nil {
		return err
	}
	hash, err := contracts.SafeTransactionHash(ctx, s.caller, s.cfg.Safe, to, value, payload.Data, nonce)
	if err != nil {
		return fmt.Errorf("safe tx hash: %w", err)
	}
	sig, err := s.signer.SignHash(hash)
	if err != nil {
		return fmt.Errorf("sign safe tx: %w", err)
	}

	zero := common.Address{}.Hex()
	body := proposal{
		To:                      to.Hex(),
		Value:                   value.String(),
		Data:                    hexutil.Encode(payload.Data),
		Operation:               0,
		SafeTxGas:               "0",
		BaseGas:                 "0",
		GasPrice:                "0",
		GasToken:                zero,
		RefundReceiver:          zero,
		Nonce:                   nonce.String(),
		ContractTransactionHash: hash.Hex(),
		Sender:                  s.signer.Address().Hex(),
		Signature:               hexutil.Encode(sig),
		Origin:                  s.cfg.Origin,
	}

	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("safe", s.cfg.Safe.Hex()).
		SetBody(body).
		Post("/api/v1/safes/{safe}/multisig-transactions/")
	if err != nil {
		return fmt.Errorf("propose safe tx: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("propose safe tx: http %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	s.logger.Info("safe tx proposed",
		zap.String("safe", s.cfg.Safe.Hex()),
		zap.String("to", to.Hex()),
		zap.String("nonce", nonce.String()),
		zap.String("safe_tx_hash", hash.Hex()),
		zap.String("description", payload.Description),
	)
	return nil
}

// nextNonce is the on-chain nonce, moved past any proposal still queued in
// the service.
func (s *Safe) nextNonce(ctx context.Context) (*big.Int, error) {
	nonce, err := contracts.SafeNonce(ctx, s.caller, s.cfg.Safe)
	if err != nil {
		return nil, fmt.Errorf("safe nonce: %w", err)
	}

	var page pendingPage
	resp, err := s.http.R().
		SetContext(ctx).
		SetPathParam("safe", s.cfg.Safe.Hex()).
		SetQueryParams(map[string]string{
			"nonce__gte": nonce.String(),
			"ordering":   "-nonce",
			"limit":      "1",
		}).
		SetResult(&page).
		ForceContentType("application/json").
		Get("/api/v1/safes/{safe}/multisig-transactions/")
	if err != nil {
		return nil, fmt.Errorf("list queued safe txs: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list queued safe txs: http %d", resp.StatusCode())
	}
	if len(page.Results) > 0 {
		queued, ok := new(big.Int).SetString(string(page.Results[0].Nonce), 10)
		if ok && queued.Cmp(nonce) >= 0 {
			nonce = queued.Add(queued, big.NewInt(1))
		}
	}
	return nonce, nil
}
