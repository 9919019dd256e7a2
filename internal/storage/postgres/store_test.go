package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewardEngine/internal/dispense"
	"rewardEngine/internal/reward"
	"rewardEngine/internal/storage"
)

// These tests need a scratch database in DFTOOL_TEST_PG_DSN.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DFTOOL_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("DFTOOL_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewStore(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	require.NoError(t, s.EnsureSchema(ctx))
	return s
}

func TestNewStoreRequiresDSN(t *testing.T) {
	_, err := NewStore(context.Background(), "")
	assert.Error(t, err)
}

func TestRewardsRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	kind := storage.Kind("test_" + uuid.NewString())

	table := reward.Table{}
	require.NoError(t, table.Add(decimal.RequireFromString("0.123456789012345678"), "0xA", "0xc1"))
	require.NoError(t, table.Add(decimal.Zero, "0xb", "0xc1"))
	require.NoError(t, s.SaveRewards(ctx, kind, table))

	got, err := s.LoadRewards(ctx, kind)
	require.NoError(t, err)
	assert.True(t, table["0xc1"].Equal(got["0xc1"]))
}

func TestAllocationWrittenOnce(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	runID := uuid.NewString()
	alloc := reward.Allocation{"0xa": decimal.NewFromInt(1)}

	require.NoError(t, s.SaveAllocation(ctx, runID, alloc))
	err := s.SaveAllocation(ctx, runID, alloc)
	assert.ErrorIs(t, err, storage.ErrExists)
}

func TestReportRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	report := dispense.Report{
		RunID:      uuid.NewString(),
		StartedAt:  now,
		FinishedAt: now.Add(time.Minute),
		Batches: []dispense.BatchResult{
			{Index: 0, Status: dispense.BatchSkipped, Recipients: 3, Total: decimal.NewFromInt(3)},
		},
		TotalPaid: decimal.Zero,
	}
	require.NoError(t, s.SaveReport(ctx, report))

	got, ok, err := s.LoadReport(ctx, report.RunID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, got.Count(dispense.BatchSkipped))

	_, ok, err = s.LoadReport(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
