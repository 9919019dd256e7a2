package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrMalformedRecord matches every MalformedRecordError via errors.Is.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError reports a raw query record that could not be turned
// into an Outcome. The record is rejected as a whole.
type MalformedRecordError struct {
	Field  string
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed record: %s: %s", e.Field, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return e.Err }

func (e *MalformedRecordError) Is(target error) bool { return target == ErrMalformedRecord }

func malformed(field, reason string, err error) error {
	return &MalformedRecordError{Field: field, Reason: reason, Err: err}
}

// Record is a raw key-value structure as returned by the query source.
type Record = map[string]any

// ParseOutcome builds an Outcome from a subgraph prediction record:
//
//	{"slot": {"slot": "123", "predictContract": {"id": "0x.."}},
//	 "stake": "0.22", "payout": {"payout": "1.23"}}
//
// An absent, null or empty payout object means payout 0.
func ParseOutcome(record Record) (Outcome, error) {
	if record == nil {
		return Outcome{}, malformed("record", "nil record", nil)
	}

	slotRec, err := childRecord(record, "slot")
	if err != nil {
		return Outcome{}, err
	}
	contractRec, err := childRecord(slotRec, "predictContract")
	if err != nil {
		return Outcome{}, err
	}
	subjectID, err := stringValue(contractRec, "slot.predictContract.id", "id")
	if err != nil {
		return Outcome{}, err
	}
	slot, err := uintValue(slotRec, "slot.slot", "slot")
	if err != nil {
		return Outcome{}, err
	}

	payout := decimal.Zero
	if raw, ok := record["payout"]; ok && raw != nil {
		payoutRec, ok := raw.(map[string]any)
		if !ok {
			return Outcome{}, malformed("payout", fmt.Sprintf("expected object, got %T", raw), nil)
		}
		if _, present := payoutRec["payout"]; present {
			payout, err = decimalValue(payoutRec, "payout.payout", "payout")
			if err != nil {
				return Outcome{}, err
			}
		}
	}

	stake, err := decimalValue(record, "stake", "stake")
	if err != nil {
		return Outcome{}, err
	}

	outcome, err := NewOutcome(slot, payout, stake, subjectID)
	if err != nil {
		return Outcome{}, malformed("record", "invalid values", err)
	}
	return outcome, nil
}

// RecordIdentity returns the predictor address (user.id) of a record.
func RecordIdentity(record Record) (string, error) {
	userRec, err := childRecord(record, "user")
	if err != nil {
		return "", err
	}
	return stringValue(userRec, "user.id", "id")
}

// NormalizeAddress case-folds an address so differently cased forms of the
// same account collapse to one key.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

func childRecord(parent Record, key string) (Record, error) {
	raw, ok := parent[key]
	if !ok || raw == nil {
		return nil, malformed(key, "missing", nil)
	}
	child, ok := raw.(map[string]any)
	if !ok {
		return nil, malformed(key, fmt.Sprintf("expected object, got %T", raw), nil)
	}
	return child, nil
}

func stringValue(rec Record, field, key string) (string, error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return "", malformed(field, "missing", nil)
	}
	s, ok := raw.(string)
	if !ok {
		return "", malformed(field, fmt.Sprintf("expected string, got %T", raw), nil)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", malformed(field, "empty", nil)
	}
	return s, nil
}

func uintValue(rec Record, field, key string) (uint64, error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return 0, malformed(field, "missing", nil)
	}
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, malformed(field, "not an unsigned integer", err)
		}
		return n, nil
	case json.Number:
		n, err := strconv.ParseUint(v.String(), 10, 64)
		if err != nil {
			return 0, malformed(field, "not an unsigned integer", err)
		}
		return n, nil
	case float64:
		if v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
			return 0, malformed(field, fmt.Sprintf("not an unsigned integer: %v", v), nil)
		}
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, malformed(field, "negative", nil)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, malformed(field, "negative", nil)
		}
		return uint64(v), nil
	case uint64:
		return v, nil
	default:
		return 0, malformed(field, fmt.Sprintf("unsupported type %T", raw), nil)
	}
}

func decimalValue(rec Record, field, key string) (decimal.Decimal, error) {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return decimal.Zero, malformed(field, "missing", nil)
	}
	switch v := raw.(type) {
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return decimal.Zero, malformed(field, "not numeric", err)
		}
		return d, nil
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return decimal.Zero, malformed(field, "not numeric", err)
		}
		return d, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, malformed(field, "not finite", nil)
		}
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return decimal.Zero, malformed(field, fmt.Sprintf("unsupported type %T", raw), nil)
	}
}
