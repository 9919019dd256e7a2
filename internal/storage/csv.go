package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"rewardEngine/internal/aggregate"
	"rewardEngine/internal/dispense"
	"rewardEngine/internal/model"
	"rewardEngine/internal/reward"
)

var (
	accountColumns = []string{"predictoor_addr", "accuracy", "n_preds", "n_correct_preds", "revenue"}
	summaryColumns = []string{
		"predictoor_addr", "contract_addr", "n_preds", "n_correct_preds", "accuracy",
		"total_payout", "total_stake", "total_revenue",
	}
	allocationColumns = []string{"recipient", "amount"}
)

// rewardLayout describes the CSV columns of one reward stream: the
// dimension columns, then the recipient, then the amount.
type rewardLayout struct {
	file      string
	dims      []string
	recipient string
}

var rewardLayouts = map[Kind]rewardLayout{
	KindPredictoor: {file: "predictoor_rose_rewards.csv", dims: []string{"contract_addr"}, recipient: "predictoor_addr"},
	KindVolume:     {file: "volume_rewards.csv", dims: []string{"chainid", "token_symbol"}, recipient: "LP_addr"},
}

// CSVStore keeps every artifact as a file in one directory. Existing files
// are never overwritten.
type CSVStore struct {
	dir string
}

func NewCSVStore(dir string) (*CSVStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("csv dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create csv dir: %w", err)
	}
	return &CSVStore{dir: dir}, nil
}

func (s *CSVStore) Dir() string { return s.dir }

func PredictContractsFile(chainID uint64) string {
	return fmt.Sprintf("predictoor_contracts_%d.csv", chainID)
}

func PredictoorDataFile(chainID uint64) string {
	return fmt.Sprintf("predictoordata_%d.csv", chainID)
}

func PredictoorSummaryFile(chainID uint64) string {
	return fmt.Sprintf("predictoor_summary_%d.csv", chainID)
}

func RewardsFile(kind Kind) string { return rewardLayouts[kind].file }

func AllocationFile(runID string) string { return "allocation_" + runID + ".csv" }

func ReportFile(runID string) string { return "dispense_report_" + runID + ".json" }

// Exists reports whether name is already present in the store.
func (s *CSVStore) Exists(name string) bool {
	_, err := os.Stat(s.path(name))
	return err == nil
}

func (s *CSVStore) SavePredictContracts(chainID uint64, contracts []model.PredictContract) error {
	rows := make([][]string, 0, len(contracts))
	for _, c := range contracts {
		m := c.ToMap()
		row := make([]string, 0, len(model.PredictContractColumns))
		for _, col := range model.PredictContractColumns {
			row = append(row, m[col])
		}
		rows = append(rows, row)
	}
	return s.write(PredictContractsFile(chainID), model.PredictContractColumns, rows)
}

func (s *CSVStore) LoadPredictContracts(chainID uint64) ([]model.PredictContract, error) {
	rows, err := s.readMaps(PredictContractsFile(chainID), model.PredictContractColumns)
	if err != nil {
		return nil, err
	}
	out := make([]model.PredictContract, 0, len(rows))
	for _, row := range rows {
		c, err := model.PredictContractFromMap(row)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SavePredictoorData writes the account level statistics of every predictor.
func (s *CSVStore) SavePredictoorData(chainID uint64, accounts []*aggregate.Account) error {
	rows := make([][]string, 0, len(accounts))
	for _, acc := range accounts {
		rows = append(rows, []string{
			acc.Identity(),
			strconv.FormatFloat(acc.Accuracy(), 'f', -1, 64),
			strconv.Itoa(acc.PredictionCount()),
			strconv.Itoa(acc.CorrectPredictionCount()),
			acc.Revenue().String(),
		})
	}
	return s.write(PredictoorDataFile(chainID), accountColumns, rows)
}

// SavePredictoorSummaries writes one row per predictor and contract.
func (s *CSVStore) SavePredictoorSummaries(chainID uint64, accounts []*aggregate.Account) error {
	rows := make([][]string, 0)
	for _, acc := range accounts {
		summaries := acc.AllSummaries()
		for _, subject := range sortedKeys(summaries) {
			sum := summaries[subject]
			rows = append(rows, []string{
				acc.Identity(),
				sum.SubjectID,
				strconv.Itoa(sum.PredictionCount),
				strconv.Itoa(sum.CorrectPredictionCount),
				strconv.FormatFloat(sum.Accuracy(), 'f', -1, 64),
				sum.TotalPayout.String(),
				sum.TotalStake.String(),
				sum.TotalRevenue.String(),
			})
		}
	}
	return s.write(PredictoorSummaryFile(chainID), summaryColumns, rows)
}

// LoadPredictoorPerformance reads the summary file back as reward inputs.
func (s *CSVStore) LoadPredictoorPerformance(chainID uint64) ([]reward.Performance, error) {
	rows, err := s.readMaps(PredictoorSummaryFile(chainID), summaryColumns)
	if err != nil {
		return nil, err
	}
	out := make([]reward.Performance, 0, len(rows))
	for i, row := range rows {
		revenue, err := decimal.NewFromString(row["total_revenue"])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: total_revenue: %w", PredictoorSummaryFile(chainID), i+1, err)
		}
		out = append(out, reward.Performance{
			Recipient: row["predictoor_addr"],
			Subject:   row["contract_addr"],
			Revenue:   revenue,
		})
	}
	return out, nil
}

func (s *CSVStore) SaveRewards(_ context.Context, kind Kind, table reward.Table) error {
	layout, ok := rewardLayouts[kind]
	if !ok {
		return fmt.Errorf("unknown reward stream %q", kind)
	}
	header := append(append([]string{}, layout.dims...), layout.recipient, "amount")
	rows := make([][]string, 0)
	for _, key := range table.Keys() {
		dims := reward.SplitDimensionKey(key)
		if len(dims) != len(layout.dims) {
			return fmt.Errorf("%s: key %q has %d dimensions, want %d", kind, key, len(dims), len(layout.dims))
		}
		inner := table[key]
		for _, recipient := range inner.Recipients() {
			row := append(append([]string{}, dims...), recipient, inner[recipient].String())
			rows = append(rows, row)
		}
	}
	return s.write(layout.file, header, rows)
}

func (s *CSVStore) LoadRewards(_ context.Context, kind Kind) (reward.Table, error) {
	layout, ok := rewardLayouts[kind]
	if !ok {
		return nil, fmt.Errorf("unknown reward stream %q", kind)
	}
	header := append(append([]string{}, layout.dims...), layout.recipient, "amount")
	rows, err := s.readMaps(layout.file, header)
	if err != nil {
		return nil, err
	}
	table := make(reward.Table)
	for i, row := range rows {
		amount, err := decimal.NewFromString(row["amount"])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: amount: %w", layout.file, i+1, err)
		}
		dims := make([]string, 0, len(layout.dims))
		for _, d := range layout.dims {
			dims = append(dims, row[d])
		}
		if err := table.Add(amount, row[layout.recipient], dims...); err != nil {
			return nil, fmt.Errorf("%s row %d: %w", layout.file, i+1, err)
		}
	}
	return table, nil
}

// SaveAllocation writes the allocation, zero entries included, sorted by
// recipient.
func (s *CSVStore) SaveAllocation(_ context.Context, runID string, alloc reward.Allocation) error {
	rows := make([][]string, 0, len(alloc))
	for _, recipient := range alloc.Recipients() {
		rows = append(rows, []string{recipient, alloc[recipient].String()})
	}
	return s.write(AllocationFile(runID), allocationColumns, rows)
}

func (s *CSVStore) LoadAllocation(runID string) (reward.Allocation, error) {
	rows, err := s.readMaps(AllocationFile(runID), allocationColumns)
	if err != nil {
		return nil, err
	}
	alloc := make(reward.Allocation, len(rows))
	for _, row := range rows {
		amount, err := decimal.NewFromString(row["amount"])
		if err != nil {
			return nil, fmt.Errorf("allocation %s: %w", row["recipient"], err)
		}
		alloc[reward.NormalizeRecipient(row["recipient"])] = amount
	}
	return alloc, nil
}

// SaveReport writes the run report as indented JSON next to the CSVs.
func (s *CSVStore) SaveReport(_ context.Context, report dispense.Report) error {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return s.create(ReportFile(report.RunID), func(f *os.File) error {
		_, err := f.Write(append(raw, '\n'))
		return err
	})
}

func (s *CSVStore) LoadReport(runID string) (dispense.Report, error) {
	var report dispense.Report
	raw, err := os.ReadFile(s.path(ReportFile(runID)))
	if err != nil {
		return report, err
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		return report, fmt.Errorf("parse report: %w", err)
	}
	return report, nil
}

func (s *CSVStore) path(name string) string {
	return filepath.Join(s.dir, name)
}

// create writes a new file through a temp file and rename. It fails with
// ErrExists if name is already present.
func (s *CSVStore) create(name string, fill func(*os.File) error) error {
	target := s.path(name)
	if _, err := os.Stat(target); err == nil {
		return fmt.Errorf("%s: %w", target, ErrExists)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Link(tmp.Name(), target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%s: %w", target, ErrExists)
		}
		return fmt.Errorf("publish %s: %w", name, err)
	}
	return nil
}

func (s *CSVStore) write(name string, header []string, rows [][]string) error {
	return s.create(name, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(header); err != nil {
			return err
		}
		if err := w.WriteAll(rows); err != nil {
			return err
		}
		return w.Error()
	})
}

// readMaps reads a CSV file and returns each row keyed by column. Every
// required column must be present in the header.
func (s *CSVStore) readMaps(name string, required []string) ([]map[string]string, error) {
	f, err := os.Open(s.path(name))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header", name)
	}
	header := records[0]
	index := make(map[string]int, len(header))
	for i, col := range header {
		index[col] = i
	}
	for _, col := range required {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%s: missing column %s", name, col)
		}
	}

	out := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for col, i := range index {
			row[col] = rec[i]
		}
		out = append(out, row)
	}
	return out, nil
}

func sortedKeys(m map[string]aggregate.SubjectSummary) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
