package reward

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"rewardEngine/internal/model"
)

const dimensionSep = "/"

// Allocation maps a normalized recipient address to an amount. It is the
// fully reduced form handed to the dispense engine.
type Allocation map[string]decimal.Decimal

// Table maps a dimension key (a contract, or chain and token symbol) to the
// allocation earned under that dimension.
type Table map[string]Allocation

// DimensionKey joins dimension values into a table key.
func DimensionKey(parts ...string) string {
	return strings.Join(parts, dimensionSep)
}

// SplitDimensionKey is the inverse of DimensionKey.
func SplitDimensionKey(key string) []string {
	return strings.Split(key, dimensionSep)
}

// NormalizeRecipient case-folds a recipient address.
func NormalizeRecipient(address string) string {
	return model.NormalizeAddress(address)
}

// Add credits amount to recipient under the given dimensions. Recipients
// differing only in letter case are merged.
func (t Table) Add(amount decimal.Decimal, recipient string, dims ...string) error {
	if amount.IsNegative() {
		return fmt.Errorf("negative reward %s for %s", amount, recipient)
	}
	recipient = NormalizeRecipient(recipient)
	if recipient == "" {
		return fmt.Errorf("empty recipient")
	}
	key := DimensionKey(dims...)
	inner := t[key]
	if inner == nil {
		inner = make(Allocation)
		t[key] = inner
	}
	inner.add(recipient, amount)
	return nil
}

// Validate checks that every amount is non-negative and every recipient key
// is already normalized.
func (t Table) Validate() error {
	for key, inner := range t {
		for recipient, amount := range inner {
			if amount.IsNegative() {
				return fmt.Errorf("%s: negative reward %s for %s", key, amount, recipient)
			}
			if recipient != NormalizeRecipient(recipient) {
				return fmt.Errorf("%s: recipient %s is not normalized", key, recipient)
			}
		}
	}
	return nil
}

// Keys returns the dimension keys in sorted order.
func (t Table) Keys() []string {
	keys := make([]string, 0, len(t))
	for key := range t {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Total is the sum of all amounts.
func (a Allocation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, amount := range a {
		total = total.Add(amount)
	}
	return total
}

// Recipients returns the recipients in sorted order.
func (a Allocation) Recipients() []string {
	out := make([]string, 0, len(a))
	for recipient := range a {
		out = append(out, recipient)
	}
	sort.Strings(out)
	return out
}

// WithoutZero returns a copy without zero-amount recipients.
func (a Allocation) WithoutZero() Allocation {
	out := make(Allocation, len(a))
	for recipient, amount := range a {
		if amount.IsZero() {
			continue
		}
		out[recipient] = amount
	}
	return out
}

// Equal compares amounts numerically.
func (a Allocation) Equal(other Allocation) bool {
	if len(a) != len(other) {
		return false
	}
	for recipient, amount := range a {
		v, ok := other[recipient]
		if !ok || !v.Equal(amount) {
			return false
		}
	}
	return true
}

func (a Allocation) add(recipient string, amount decimal.Decimal) {
	if current, ok := a[recipient]; ok {
		a[recipient] = current.Add(amount)
		return
	}
	a[recipient] = amount
}
