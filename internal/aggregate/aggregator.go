package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"rewardEngine/internal/model"
)

// ErrorSink receives records rejected during a fold.
type ErrorSink interface {
	PutDecodeErrors(errs []model.DecodeError) error
}

// Config controls aggregation behavior.
type Config struct {
	ChainID uint64
}

// Stats counts the records seen by a fold.
type Stats struct {
	Total  int
	Folded int
	Failed int
}

// Aggregator folds raw prediction records into per-account statistics.
type Aggregator struct {
	cfg      Config
	sink     ErrorSink
	logger   *zap.Logger
	accounts map[string]*Account
}

func NewAggregator(cfg Config, sink ErrorSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:      cfg,
		sink:     sink,
		logger:   logger,
		accounts: make(map[string]*Account),
	}
}

// Fold parses each record and appends it to its account. A malformed record
// is reported to the sink and skipped; it never aborts the pass.
func (a *Aggregator) Fold(records []model.Record) (Stats, error) {
	var stats Stats
	rejected := make([]model.DecodeError, 0)

	for _, record := range records {
		stats.Total++

		outcome, identity, err := parseRecord(record)
		if err != nil {
			stats.Failed++
			rejected = append(rejected, a.decodeError(record, err))
			a.logger.Warn("skip malformed record", zap.Error(err), zap.String("record_id", recordID(record)))
			continue
		}

		a.account(identity).AddOutcome(outcome)
		stats.Folded++
	}

	if len(rejected) > 0 && a.sink != nil {
		if err := a.sink.PutDecodeErrors(rejected); err != nil {
			return stats, fmt.Errorf("store decode errors: %w", err)
		}
	}

	a.logger.Info("fold complete",
		zap.Int("total", stats.Total),
		zap.Int("folded", stats.Folded),
		zap.Int("failed", stats.Failed),
		zap.Int("accounts", len(a.accounts)),
	)
	return stats, nil
}

// AddOutcome appends an already parsed outcome to an account.
func (a *Aggregator) AddOutcome(identity string, outcome model.Outcome) {
	a.account(model.NormalizeAddress(identity)).AddOutcome(outcome)
}

// Account returns the account of an identity, in any letter case.
func (a *Aggregator) Account(identity string) (*Account, bool) {
	acc, ok := a.accounts[model.NormalizeAddress(identity)]
	return acc, ok
}

// Accounts returns all accounts ordered by identity.
func (a *Aggregator) Accounts() []*Account {
	out := make([]*Account, 0, len(a.accounts))
	for _, acc := range a.accounts {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identity() < out[j].Identity() })
	return out
}

// Subjects returns every subject id with at least one outcome, sorted.
func (a *Aggregator) Subjects() []string {
	seen := make(map[string]struct{})
	for _, acc := range a.accounts {
		for subject := range acc.AllSummaries() {
			seen[subject] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for subject := range seen {
		out = append(out, subject)
	}
	sort.Strings(out)
	return out
}

func (a *Aggregator) account(identity string) *Account {
	acc := a.accounts[identity]
	if acc == nil {
		acc = NewAccount(identity)
		a.accounts[identity] = acc
	}
	return acc
}

func (a *Aggregator) decodeError(record model.Record, err error) model.DecodeError {
	out := model.DecodeError{
		ChainID:  a.cfg.ChainID,
		RecordID: recordID(record),
		Error:    err.Error(),
	}
	var mre *model.MalformedRecordError
	if errors.As(err, &mre) {
		out.Field = mre.Field
	}
	return out
}

func parseRecord(record model.Record) (model.Outcome, string, error) {
	identity, err := model.RecordIdentity(record)
	if err != nil {
		return model.Outcome{}, "", err
	}
	outcome, err := model.ParseOutcome(record)
	if err != nil {
		return model.Outcome{}, "", err
	}
	return outcome, model.NormalizeAddress(identity), nil
}

func recordID(record model.Record) string {
	if record == nil {
		return ""
	}
	if id, ok := record["id"].(string); ok {
		return id
	}
	return ""
}
