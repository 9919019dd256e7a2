package storage

import (
	"context"
	"errors"
	"fmt"

	"rewardEngine/internal/dispense"
	"rewardEngine/internal/reward"
)

// ErrExists is returned instead of overwriting an output.
var ErrExists = errors.New("output already exists")

// Kind names a reward stream.
type Kind string

const (
	KindPredictoor Kind = "predictoor_rose"
	KindVolume     Kind = "volume"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindPredictoor, KindVolume:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown reward stream %q", s)
}

// RewardStore loads and saves dimensioned reward tables.
type RewardStore interface {
	LoadRewards(ctx context.Context, kind Kind) (reward.Table, error)
	SaveRewards(ctx context.Context, kind Kind, table reward.Table) error
}

// AllocationStore records the flat allocation handed to a dispense run,
// including zero entries.
type AllocationStore interface {
	SaveAllocation(ctx context.Context, runID string, alloc reward.Allocation) error
}

// DispenseStore is everything the dispense command persists.
type DispenseStore interface {
	RewardStore
	AllocationStore
	dispense.ReportStore
}

// Shape reduces a reward table to a flat allocation. Volume rewards are
// flattened across chain and token; predictoor rewards are summed across
// contracts.
func Shape(kind Kind, table reward.Table) (reward.Allocation, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	switch kind {
	case KindVolume:
		return reward.Flatten(table), nil
	case KindPredictoor:
		allocs := make([]reward.Allocation, 0, len(table))
		for _, key := range table.Keys() {
			allocs = append(allocs, table[key])
		}
		return reward.Aggregate(allocs...), nil
	}
	return nil, fmt.Errorf("unknown reward stream %q", kind)
}
