package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"

	"rewardEngine/internal/dispense"
	"rewardEngine/internal/reward"
	"rewardEngine/internal/storage"
)

const (
	ReportsBucket     = "dispense:reports"
	AllocationsBucket = "dispense:allocations"
)

// Store keeps dispense reports and allocations in a local bbolt file.
type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database path: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range []string{ReportsBucket, AllocationsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database buckets: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) SaveReport(_ context.Context, report dispense.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ReportsBucket)).Put([]byte(report.RunID), raw)
	})
}

func (s *Store) LoadReport(runID string) (dispense.Report, bool, error) {
	var (
		report dispense.Report
		found  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(ReportsBucket)).Get([]byte(runID))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &report)
	})
	return report, found, err
}

// Reports returns every stored report ordered by run id.
func (s *Store) Reports() ([]dispense.Report, error) {
	out := make([]dispense.Report, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ReportsBucket)).ForEach(func(_, v []byte) error {
			var report dispense.Report
			if err := json.Unmarshal(v, &report); err != nil {
				return err
			}
			out = append(out, report)
			return nil
		})
	})
	return out, err
}

// SaveAllocation stores amounts as decimal strings. A run id is written once.
func (s *Store) SaveAllocation(_ context.Context, runID string, alloc reward.Allocation) error {
	rows := make(map[string]string, len(alloc))
	for recipient, amount := range alloc {
		rows[recipient] = amount.String()
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("marshal allocation: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(AllocationsBucket))
		if bucket.Get([]byte(runID)) != nil {
			return fmt.Errorf("allocation %s: %w", runID, storage.ErrExists)
		}
		return bucket.Put([]byte(runID), raw)
	})
}

func (s *Store) LoadAllocation(runID string) (reward.Allocation, error) {
	var rows map[string]string
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(AllocationsBucket)).Get([]byte(runID))
		if raw == nil {
			return fmt.Errorf("allocation %s not found", runID)
		}
		return json.Unmarshal(raw, &rows)
	})
	if err != nil {
		return nil, err
	}
	alloc := make(reward.Allocation, len(rows))
	for recipient, text := range rows {
		amount, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("allocation %s: %w", recipient, err)
		}
		alloc[recipient] = amount
	}
	return alloc, nil
}
