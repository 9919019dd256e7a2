package dispense

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewardEngine/internal/reward"
)

func sampleAllocation(n int) reward.Allocation {
	alloc := reward.Allocation{}
	for i := 0; i < n; i++ {
		alloc[recipientN(i)] = decimal.NewFromInt(int64(i + 1))
	}
	return alloc
}

func recipientN(i int) string {
	return "0x" + string(rune('a'+i/26)) + string(rune('a'+i%26))
}

func TestEngineRunPaysEveryBatch(t *testing.T) {
	ledger := newMemoryLedger()
	reports := &memoryReports{}
	engine := NewEngine(Config{BatchSize: 2}, ledger, reports, nil)

	report, err := engine.Run(context.Background(), sampleAllocation(5))
	require.NoError(t, err)

	assert.Equal(t, StateDone, engine.State())
	assert.Len(t, report.Batches, 3)
	assert.Equal(t, 3, report.Count(BatchSucceeded))
	assert.Equal(t, 5, report.RecipientsPaid)
	assert.True(t, report.TotalPaid.Equal(decimal.NewFromInt(15)))
	assert.NotEmpty(t, report.RunID)
	require.Len(t, reports.saved, 1)
	assert.Equal(t, report.RunID, reports.saved[0].RunID)
}

func TestEngineRunUsesGivenRunID(t *testing.T) {
	reports := &memoryReports{}
	engine := NewEngine(Config{RunID: "run-1", BatchSize: 10}, newMemoryLedger(), reports, nil)

	report, err := engine.Run(context.Background(), sampleAllocation(2))
	require.NoError(t, err)
	assert.Equal(t, "run-1", report.RunID)
	require.Len(t, reports.saved, 1)
	assert.Equal(t, "run-1", reports.saved[0].RunID)
}

func TestEngineLedgerCheckFailureFailsOnlyThatBatch(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.checkErrs[recipientN(2)] = Permanent("claimable", errors.New("invalid recipient"))
	engine := NewEngine(Config{BatchSize: 2, MaxRetries: 3}, ledger, nil, nil)

	report, err := engine.Run(context.Background(), sampleAllocation(6))
	require.NoError(t, err)

	require.Len(t, report.Batches, 3)
	assert.Equal(t, BatchSucceeded, report.Batches[0].Status)
	assert.Equal(t, BatchFailed, report.Batches[1].Status)
	assert.Contains(t, report.Batches[1].Error, "check ledger: ")
	assert.Contains(t, report.Batches[1].Error, "invalid recipient")
	assert.Equal(t, BatchSucceeded, report.Batches[2].Status)
	assert.Equal(t, []int{1}, report.FailedBatches())
	assert.Equal(t, 2, ledger.submissions, "the failed batch is never submitted")
	assert.Equal(t, 4, report.RecipientsPaid)
}

func TestEngineRerunSkipsPaidBatches(t *testing.T) {
	ledger := newMemoryLedger()
	alloc := sampleAllocation(7)
	engine := NewEngine(Config{BatchSize: 3}, ledger, nil, nil)

	_, err := engine.Run(context.Background(), alloc)
	require.NoError(t, err)
	submitted := ledger.submissions

	report, err := engine.Run(context.Background(), alloc)
	require.NoError(t, err)
	assert.Equal(t, submitted, ledger.submissions, "second run must not submit")
	assert.Equal(t, len(report.Batches), report.Count(BatchSkipped))
	assert.Zero(t, report.RecipientsPaid)
	for r, amount := range alloc {
		assert.True(t, ledger.paid[r].Equal(amount), "recipient %s paid twice", r)
	}
}

func TestEnginePartialFailure(t *testing.T) {
	ledger := newMemoryLedger()
	alloc := sampleAllocation(6)
	batches, err := SplitBatches(alloc, 2)
	require.NoError(t, err)
	ledger.always[batches[1].Entries[0].Recipient] = Permanent("allocate", errors.New("execution reverted"))

	engine := NewEngine(Config{BatchSize: 2, MaxRetries: 3}, ledger, nil, nil)
	report, err := engine.Run(context.Background(), alloc)
	require.NoError(t, err)

	require.Len(t, report.Batches, 3)
	assert.Equal(t, BatchSucceeded, report.Batches[0].Status)
	assert.Equal(t, BatchFailed, report.Batches[1].Status)
	assert.Equal(t, BatchSucceeded, report.Batches[2].Status)
	assert.Equal(t, 1, report.Batches[1].Attempts, "permanent errors are not retried")
	assert.Contains(t, report.Batches[1].Error, "execution reverted")
	assert.Equal(t, []int{1}, report.FailedBatches())
	assert.Equal(t, 4, report.RecipientsPaid)
}

func TestEngineRetriesTransientErrors(t *testing.T) {
	ledger := newMemoryLedger()
	alloc := sampleAllocation(2)
	first := alloc.Recipients()[0]
	ledger.failures[first] = []error{Transient("allocate", errTimeout), errTimeout}

	engine := NewEngine(Config{BatchSize: 2, MaxRetries: 2, RetryDelay: time.Millisecond}, ledger, nil, nil)
	report, err := engine.Run(context.Background(), alloc)
	require.NoError(t, err)

	require.Len(t, report.Batches, 1)
	assert.Equal(t, BatchSucceeded, report.Batches[0].Status)
	assert.Equal(t, 3, report.Batches[0].Attempts)
	assert.Equal(t, 3, ledger.submissions)
}

func TestEngineTransientRetriesExhaust(t *testing.T) {
	ledger := newMemoryLedger()
	alloc := sampleAllocation(4)
	batches, err := SplitBatches(alloc, 2)
	require.NoError(t, err)
	ledger.always[batches[0].Entries[0].Recipient] = Transient("allocate", errTimeout)

	engine := NewEngine(Config{BatchSize: 2, MaxRetries: 1}, ledger, nil, nil)
	report, err := engine.Run(context.Background(), alloc)
	require.NoError(t, err)

	assert.Equal(t, BatchFailed, report.Batches[0].Status)
	assert.Equal(t, 2, report.Batches[0].Attempts)
	assert.Equal(t, BatchSucceeded, report.Batches[1].Status)
}

func TestEngineSingleBatchIndex(t *testing.T) {
	ledger := newMemoryLedger()
	alloc := sampleAllocation(5)
	idx := 1
	engine := NewEngine(Config{BatchSize: 2, BatchIndex: &idx}, ledger, nil, nil)

	report, err := engine.Run(context.Background(), alloc)
	require.NoError(t, err)
	require.Len(t, report.Batches, 1)
	assert.Equal(t, 1, report.Batches[0].Index)
	assert.Equal(t, 1, ledger.submissions)

	batches, err := SplitBatches(alloc, 2)
	require.NoError(t, err)
	for _, r := range batches[1].Recipients() {
		assert.Contains(t, ledger.paid, r)
	}
	assert.Len(t, ledger.paid, 2)
}

func TestEngineConfigurationErrors(t *testing.T) {
	bad := 9
	negative := -1
	tests := []struct {
		name   string
		cfg    Config
		ledger Ledger
		alloc  reward.Allocation
	}{
		{name: "no ledger", cfg: Config{BatchSize: 2}, alloc: sampleAllocation(2)},
		{name: "zero batch size", cfg: Config{}, ledger: newMemoryLedger(), alloc: sampleAllocation(2)},
		{name: "batch index out of range", cfg: Config{BatchSize: 2, BatchIndex: &bad}, ledger: newMemoryLedger(), alloc: sampleAllocation(2)},
		{name: "negative batch index", cfg: Config{BatchSize: 2, BatchIndex: &negative}, ledger: newMemoryLedger(), alloc: sampleAllocation(2)},
		{name: "unknown zero policy", cfg: Config{BatchSize: 2, ZeroPolicy: "drop"}, ledger: newMemoryLedger(), alloc: sampleAllocation(2)},
		{name: "negative amount", cfg: Config{BatchSize: 2}, ledger: newMemoryLedger(), alloc: reward.Allocation{"0xa": decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(tt.cfg, tt.ledger, nil, nil)
			_, err := engine.Run(context.Background(), tt.alloc)
			require.Error(t, err)
			assert.True(t, IsConfiguration(err), "got %v", err)
			if l, ok := tt.ledger.(*memoryLedger); ok {
				assert.Zero(t, l.submissions)
			}
		})
	}
}

func TestEngineZeroPolicy(t *testing.T) {
	alloc := reward.Allocation{
		"0xa": decimal.NewFromInt(1),
		"0xb": decimal.Zero,
	}

	ledger := newMemoryLedger()
	report, err := NewEngine(Config{BatchSize: 10, ZeroPolicy: ZeroAudit}, ledger, nil, nil).Run(context.Background(), alloc)
	require.NoError(t, err)
	assert.Equal(t, 1, report.RecipientsPaid)
	assert.NotContains(t, ledger.paid, "0xb")

	ledger = newMemoryLedger()
	report, err = NewEngine(Config{BatchSize: 10, ZeroPolicy: ZeroInclude}, ledger, nil, nil).Run(context.Background(), alloc)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RecipientsPaid)
	assert.Contains(t, ledger.paid, "0xb")
}

func TestEngineCancelBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ledger := newMemoryLedger()
	ledger.onSubmit = func(Batch) { cancel() }
	reports := &memoryReports{}

	report, err := NewEngine(Config{BatchSize: 2}, ledger, reports, nil).Run(ctx, sampleAllocation(6))
	require.ErrorIs(t, err, context.Canceled)

	require.Len(t, report.Batches, 3)
	assert.Equal(t, BatchSucceeded, report.Batches[0].Status)
	assert.Equal(t, BatchNotRun, report.Batches[1].Status)
	assert.Equal(t, BatchNotRun, report.Batches[2].Status)
	assert.Equal(t, []int{1, 2}, report.FailedBatches())
	assert.Equal(t, 1, ledger.submissions)
	require.Len(t, reports.saved, 1, "a cancelled run still saves its report")
}

func TestEngineEmptyAllocation(t *testing.T) {
	report, err := NewEngine(Config{BatchSize: 2}, newMemoryLedger(), nil, nil).Run(context.Background(), reward.Allocation{})
	require.NoError(t, err)
	assert.Empty(t, report.Batches)
	assert.Zero(t, report.RecipientsPaid)
}

func TestParseZeroPolicy(t *testing.T) {
	p, err := ParseZeroPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ZeroAudit, p)

	p, err = ParseZeroPolicy("include")
	require.NoError(t, err)
	assert.Equal(t, ZeroInclude, p)

	_, err = ParseZeroPolicy("nope")
	assert.True(t, IsConfiguration(err))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, retryable(Transient("x", errTimeout)))
	assert.True(t, retryable(errTimeout))
	assert.False(t, retryable(Permanent("x", errTimeout)))
	assert.False(t, retryable(Configuration("bad")))
	assert.False(t, retryable(context.Canceled))
	assert.ErrorIs(t, Transient("x", errTimeout), errTimeout)
}
