package dispense

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rewardEngine/internal/retry"
	"rewardEngine/internal/reward"
)

// State is the phase of a dispense run.
type State string

const (
	StatePending     State = "pending"
	StateBatching    State = "batching"
	StateDispatching State = "dispatching"
	StateEscalating  State = "escalating"
	StateDone        State = "done"
)

// ZeroPolicy decides what happens to recipients with a zero amount.
type ZeroPolicy string

const (
	// ZeroAudit keeps zero entries in saved allocations only.
	ZeroAudit ZeroPolicy = "audit"
	// ZeroInclude sends zero entries to the ledger with everything else.
	ZeroInclude ZeroPolicy = "include"
)

func ParseZeroPolicy(s string) (ZeroPolicy, error) {
	switch ZeroPolicy(s) {
	case ZeroAudit, ZeroInclude:
		return ZeroPolicy(s), nil
	case "":
		return ZeroAudit, nil
	default:
		return "", Configuration("unknown zero amount policy %q", s)
	}
}

// Ledger is the payout ledger the engine writes to.
type Ledger interface {
	AlreadyPaid(ctx context.Context, recipient string, amount decimal.Decimal) (bool, error)
	SubmitBatch(ctx context.Context, batch Batch) error
}

// Config controls a dispense run.
type Config struct {
	// RunID names the run in its report. A random id is used when empty.
	RunID     string
	BatchSize int
	// BatchIndex runs a single batch when set.
	BatchIndex *int
	MaxRetries int
	RetryDelay time.Duration
	ZeroPolicy ZeroPolicy
}

// Attempts returns the total tries per batch.
func (c Config) Attempts() int {
	if c.MaxRetries < 0 {
		return 1
	}
	return c.MaxRetries + 1
}

func (c Config) validate() error {
	if c.BatchSize <= 0 {
		return Configuration("batch size must be greater than zero, got %d", c.BatchSize)
	}
	if c.BatchIndex != nil && *c.BatchIndex < 0 {
		return Configuration("batch index must not be negative, got %d", *c.BatchIndex)
	}
	if c.RetryDelay < 0 {
		return Configuration("retry delay must not be negative")
	}
	if _, err := ParseZeroPolicy(string(c.ZeroPolicy)); err != nil {
		return err
	}
	return nil
}

// Engine pushes a flat allocation to a ledger one batch at a time.
type Engine struct {
	cfg     Config
	ledger  Ledger
	reports ReportStore
	logger  *zap.Logger

	mu    sync.Mutex
	state State
}

func NewEngine(cfg Config, ledger Ledger, reports ReportStore, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ZeroPolicy == "" {
		cfg.ZeroPolicy = ZeroAudit
	}
	return &Engine{
		cfg:     cfg,
		ledger:  ledger,
		reports: reports,
		logger:  logger,
		state:   StatePending,
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) setState(state State) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
	e.logger.Debug("dispense state", zap.String("state", string(state)))
}

// Run dispatches alloc. Batch failures are recorded in the report and do not
// stop the run. Only configuration problems return an error before anything is
// sent. A cancelled context stops the run between batches and the report is
// returned along with ctx.Err().
func (e *Engine) Run(ctx context.Context, alloc reward.Allocation) (Report, error) {
	e.setState(StatePending)
	runID := e.cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	report := Report{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Batches:   make([]BatchResult, 0),
		TotalPaid: decimal.Zero,
	}

	if e.ledger == nil {
		return report, Configuration("ledger is not configured")
	}
	if err := e.cfg.validate(); err != nil {
		return report, err
	}
	for recipient, amount := range alloc {
		if amount.IsNegative() {
			return report, Configuration("negative amount %s for %s", amount, recipient)
		}
	}

	e.setState(StateBatching)
	payable := alloc
	if e.cfg.ZeroPolicy == ZeroAudit {
		payable = alloc.WithoutZero()
	}
	batches, err := SplitBatches(payable, e.cfg.BatchSize)
	if err != nil {
		return report, Configuration("%v", err)
	}
	if e.cfg.BatchIndex != nil {
		idx := *e.cfg.BatchIndex
		if idx >= len(batches) {
			return report, Configuration("batch index %d out of range, allocation has %d batches", idx, len(batches))
		}
		batches = batches[idx : idx+1]
	}

	e.logger.Info("dispense start",
		zap.String("run_id", report.RunID),
		zap.Int("recipients", len(payable)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", e.cfg.BatchSize),
		zap.String("zero_policy", string(e.cfg.ZeroPolicy)),
	)

	e.setState(StateDispatching)
	var runErr error
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			for _, rest := range batches[i:] {
				report.Batches = append(report.Batches, BatchResult{
					Index:      rest.Index,
					Status:     BatchNotRun,
					Recipients: len(rest.Entries),
					Total:      rest.Total(),
				})
			}
			runErr = err
			e.logger.Warn("dispense cancelled", zap.Int("remaining_batches", len(batches)-i))
			break
		}

		result := e.dispatch(ctx, batch)
		report.Batches = append(report.Batches, result)
		if result.Status == BatchSucceeded {
			report.RecipientsPaid += result.Recipients
			report.TotalPaid = report.TotalPaid.Add(result.Total)
		}
	}

	e.setState(StateDone)
	report.FinishedAt = time.Now().UTC()
	e.logger.Info("dispense done",
		zap.String("run_id", report.RunID),
		zap.Int("succeeded", report.Count(BatchSucceeded)),
		zap.Int("skipped", report.Count(BatchSkipped)),
		zap.Int("failed", report.Count(BatchFailed)),
		zap.Int("not_run", report.Count(BatchNotRun)),
		zap.Int("recipients_paid", report.RecipientsPaid),
		zap.String("total_paid", report.TotalPaid.String()),
	)

	if e.reports != nil {
		// The store gets a fresh context so a cancelled run still leaves a report.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := e.reports.SaveReport(saveCtx, report); err != nil {
			runErr = errors.Join(runErr, fmt.Errorf("save report: %w", err))
		}
	}
	return report, runErr
}

func (e *Engine) dispatch(ctx context.Context, batch Batch) BatchResult {
	result := BatchResult{
		Index:      batch.Index,
		Recipients: len(batch.Entries),
		Total:      batch.Total(),
	}
	logger := e.logger.With(zap.Int("batch", batch.Index), zap.Int("recipients", len(batch.Entries)))

	policy := retry.Fixed(e.cfg.Attempts(), e.cfg.RetryDelay)
	policy.Retryable = retryable
	policy.OnRetry = func(attempt int, err error) {
		logger.Warn("batch attempt failed", zap.Int("attempt", attempt), zap.Error(err))
	}

	var paid bool
	_, err := policy.Do(ctx, func(ctx context.Context) error {
		var err error
		paid, err = e.alreadyPaid(ctx, batch)
		return err
	})
	if err != nil {
		result.Status = BatchFailed
		result.Error = fmt.Sprintf("check ledger: %v", err)
		logger.Error("batch check failed", zap.Error(err))
		return result
	}
	if paid {
		result.Status = BatchSkipped
		logger.Info("batch already paid")
		return result
	}

	attempts, err := policy.Do(ctx, func(ctx context.Context) error {
		return e.ledger.SubmitBatch(ctx, batch)
	})
	result.Attempts = attempts
	if err != nil {
		result.Status = BatchFailed
		result.Error = err.Error()
		logger.Error("batch failed",
			zap.Int("attempts", attempts),
			zap.Bool("permanent", IsPermanent(err)),
			zap.Error(err),
		)
		return result
	}
	result.Status = BatchSucceeded
	logger.Info("batch sent", zap.Int("attempts", attempts), zap.String("total", result.Total.String()))
	return result
}

// alreadyPaid is true only when every recipient in the batch already holds
// exactly its amount on the ledger.
func (e *Engine) alreadyPaid(ctx context.Context, batch Batch) (bool, error) {
	if len(batch.Entries) == 0 {
		return true, nil
	}
	for _, entry := range batch.Entries {
		ok, err := e.ledger.AlreadyPaid(ctx, entry.Recipient, entry.Amount)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
