package dispense

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"rewardEngine/internal/retry"
)

// Payload is an operation encoded for an approval-gated channel.
type Payload struct {
	To          string
	Value       *big.Int
	Data        []byte
	Description string
}

// MultipartyChannel submits payloads that need several approvals before they
// take effect, e.g. a multisig wallet.
type MultipartyChannel interface {
	SubmitViaMultiparty(ctx context.Context, payload Payload) error
}

// Operation is an administrative action with a direct path and an encoded
// equivalent for the multiparty channel.
type Operation struct {
	Name   string
	Direct func(ctx context.Context) error
	Encode func() (Payload, error)
}

// EscalationPath tells how an operation ended up being applied.
type EscalationPath string

const (
	PathDirect     EscalationPath = "direct"
	PathMultiparty EscalationPath = "multiparty"
	PathFailed     EscalationPath = "failed"
)

type OperationResult struct {
	Name     string         `json:"name"`
	Path     EscalationPath `json:"path"`
	Attempts int            `json:"attempts"`
	Error    string         `json:"error,omitempty"`
}

// EscalationReport lists how each operation ended.
type EscalationReport struct {
	Escalated bool              `json:"escalated"`
	DirectErr string            `json:"direct_error,omitempty"`
	Results   []OperationResult `json:"results"`
}

// Err joins the errors of operations that were not applied.
func (r EscalationReport) Err() error {
	var errs []error
	for _, res := range r.Results {
		if res.Path == PathFailed {
			errs = append(errs, fmt.Errorf("%s: %s", res.Name, res.Error))
		}
	}
	return errors.Join(errs...)
}

// DefaultFallback is three multiparty attempts one minute apart.
func DefaultFallback() retry.Policy {
	return retry.Fixed(3, time.Minute)
}

// Escalator runs operations directly and, once one fails, hands it and every
// later operation to the multiparty channel. The two paths use separate retry
// policies.
type Escalator struct {
	direct   retry.Policy
	fallback retry.Policy
	channel  MultipartyChannel
	logger   *zap.Logger
	state    State
}

func NewEscalator(direct, fallback retry.Policy, channel MultipartyChannel, logger *zap.Logger) *Escalator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Escalator{
		direct:   direct,
		fallback: fallback,
		channel:  channel,
		logger:   logger,
		state:    StatePending,
	}
}

func (e *Escalator) State() State { return e.state }

// Run never returns an error: failures are reported per operation.
func (e *Escalator) Run(ctx context.Context, ops ...Operation) EscalationReport {
	report := EscalationReport{Results: make([]OperationResult, 0, len(ops))}
	e.state = StateDispatching

	failedAt := len(ops)
	for i, op := range ops {
		attempts, err := e.direct.Do(ctx, op.Direct)
		if err != nil {
			e.logger.Warn("direct operation failed",
				zap.String("op", op.Name),
				zap.Int("attempts", attempts),
				zap.Error(err),
			)
			report.DirectErr = err.Error()
			failedAt = i
			break
		}
		e.logger.Info("direct operation applied", zap.String("op", op.Name), zap.Int("attempts", attempts))
		report.Results = append(report.Results, OperationResult{Name: op.Name, Path: PathDirect, Attempts: attempts})
	}

	// Operations that already applied directly are not proposed again; a second
	// copy through the multisig would repeat their effect.
	if failedAt < len(ops) {
		e.state = StateEscalating
		report.Escalated = true
		for _, op := range ops[failedAt:] {
			report.Results = append(report.Results, e.escalate(ctx, op))
		}
	}

	e.state = StateDone
	return report
}

func (e *Escalator) escalate(ctx context.Context, op Operation) OperationResult {
	result := OperationResult{Name: op.Name}
	if e.channel == nil {
		result.Path = PathFailed
		result.Error = "no multiparty channel configured"
		e.logger.Error("escalation impossible", zap.String("op", op.Name))
		return result
	}
	if op.Encode == nil {
		result.Path = PathFailed
		result.Error = "operation has no encoded form"
		return result
	}
	payload, err := op.Encode()
	if err != nil {
		result.Path = PathFailed
		result.Error = fmt.Sprintf("encode: %v", err)
		e.logger.Error("encode operation", zap.String("op", op.Name), zap.Error(err))
		return result
	}

	policy := e.fallback
	policy.OnRetry = func(attempt int, err error) {
		e.logger.Warn("multiparty submit failed", zap.String("op", op.Name), zap.Int("attempt", attempt), zap.Error(err))
	}
	attempts, err := policy.Do(ctx, func(ctx context.Context) error {
		return e.channel.SubmitViaMultiparty(ctx, payload)
	})
	result.Attempts = attempts
	if err != nil {
		result.Path = PathFailed
		result.Error = err.Error()
		e.logger.Error("escalation failed", zap.String("op", op.Name), zap.Int("attempts", attempts), zap.Error(err))
		return result
	}
	result.Path = PathMultiparty
	e.logger.Info("operation proposed to multiparty channel", zap.String("op", op.Name), zap.String("to", payload.To))
	return result
}
