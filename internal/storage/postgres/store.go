package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"rewardEngine/internal/dispense"
	"rewardEngine/internal/reward"
	"rewardEngine/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS reward_entries (
	stream      TEXT NOT NULL,
	dimension   TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	amount      NUMERIC(78, 18) NOT NULL CHECK (amount >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (stream, dimension, recipient)
);
CREATE TABLE IF NOT EXISTS allocations (
	run_id      TEXT NOT NULL,
	recipient   TEXT NOT NULL,
	amount      NUMERIC(78, 18) NOT NULL CHECK (amount >= 0),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, recipient)
);
CREATE TABLE IF NOT EXISTS dispense_reports (
	run_id          TEXT PRIMARY KEY,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL,
	recipients_paid INTEGER NOT NULL,
	total_paid      NUMERIC(78, 18) NOT NULL,
	batches         JSONB NOT NULL
);`

// Store provides Postgres persistence for rewards, allocations and
// dispense reports.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.DispenseStore = (*Store)(nil)

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates missing tables.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// SaveRewards replaces the stored table of a reward stream.
func (s *Store) SaveRewards(ctx context.Context, kind storage.Kind, table reward.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM reward_entries WHERE stream = $1`, string(kind)); err != nil {
			return fmt.Errorf("clear %s rewards: %w", kind, err)
		}
		batch := &pgx.Batch{}
		n := 0
		for _, key := range table.Keys() {
			inner := table[key]
			for _, recipient := range inner.Recipients() {
				batch.Queue(`
					INSERT INTO reward_entries (stream, dimension, recipient, amount, created_at, updated_at)
					VALUES ($1, $2, $3, $4::numeric, now(), now())
				`, string(kind), key, recipient, inner[recipient].String())
				n++
			}
		}
		return execBatch(ctx, tx, batch, n)
	})
}

func (s *Store) LoadRewards(ctx context.Context, kind storage.Kind) (reward.Table, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT dimension, recipient, amount::text
		FROM reward_entries
		WHERE stream = $1
		ORDER BY dimension, recipient
	`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	table := make(reward.Table)
	for rows.Next() {
		var key, recipient, text string
		if err := rows.Scan(&key, &recipient, &text); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(text)
		if err != nil {
			return nil, fmt.Errorf("reward %s/%s: %w", key, recipient, err)
		}
		if err := table.Add(amount, recipient, reward.SplitDimensionKey(key)...); err != nil {
			return nil, err
		}
	}
	return table, rows.Err()
}

// SaveAllocation stores the allocation of a run. A run id is written once.
func (s *Store) SaveAllocation(ctx context.Context, runID string, alloc reward.Allocation) error {
	if runID == "" {
		return fmt.Errorf("run id required")
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM allocations WHERE run_id = $1)`, runID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("allocation %s: %w", runID, storage.ErrExists)
		}
		batch := &pgx.Batch{}
		for _, recipient := range alloc.Recipients() {
			batch.Queue(`
				INSERT INTO allocations (run_id, recipient, amount, created_at)
				VALUES ($1, $2, $3::numeric, now())
			`, runID, recipient, alloc[recipient].String())
		}
		return execBatch(ctx, tx, batch, len(alloc))
	})
}

// SaveReport inserts or updates a dispense report.
func (s *Store) SaveReport(ctx context.Context, report dispense.Report) error {
	batches, err := json.Marshal(report.Batches)
	if err != nil {
		return fmt.Errorf("marshal batches: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO dispense_reports (run_id, started_at, finished_at, recipients_paid, total_paid, batches)
		VALUES ($1, $2, $3, $4, $5::numeric, $6)
		ON CONFLICT (run_id) DO UPDATE SET
			finished_at = EXCLUDED.finished_at,
			recipients_paid = EXCLUDED.recipients_paid,
			total_paid = EXCLUDED.total_paid,
			batches = EXCLUDED.batches
	`, report.RunID, report.StartedAt, report.FinishedAt, report.RecipientsPaid, report.TotalPaid.String(), batches)
	return err
}

// LoadReport returns a stored report, or false if the run is unknown.
func (s *Store) LoadReport(ctx context.Context, runID string) (dispense.Report, bool, error) {
	var (
		report  dispense.Report
		total   string
		batches []byte
	)
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, started_at, finished_at, recipients_paid, total_paid::text, batches
		FROM dispense_reports WHERE run_id = $1
	`, runID)
	if err := row.Scan(&report.RunID, &report.StartedAt, &report.FinishedAt, &report.RecipientsPaid, &total, &batches); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dispense.Report{}, false, nil
		}
		return dispense.Report{}, false, err
	}
	var err error
	if report.TotalPaid, err = decimal.NewFromString(total); err != nil {
		return dispense.Report{}, false, fmt.Errorf("total_paid: %w", err)
	}
	if err := json.Unmarshal(batches, &report.Batches); err != nil {
		return dispense.Report{}, false, fmt.Errorf("batches: %w", err)
	}
	return report, true, nil
}

func execBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, n int) error {
	if n == 0 {
		return nil
	}
	br := tx.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}
