package dispense

import (
	"fmt"

	"github.com/shopspring/decimal"

	"rewardEngine/internal/reward"
)

// Entry is one recipient's payout.
type Entry struct {
	Recipient string
	Amount    decimal.Decimal
}

// Batch is a contiguous slice of an allocation sorted by recipient.
type Batch struct {
	Index   int
	Entries []Entry
}

func (b Batch) Recipients() []string {
	out := make([]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		out = append(out, e.Recipient)
	}
	return out
}

func (b Batch) Total() decimal.Decimal {
	total := decimal.Zero
	for _, e := range b.Entries {
		total = total.Add(e.Amount)
	}
	return total
}

// SplitBatches partitions an allocation into batches of at most size
// entries. Recipients are sorted so the same allocation always yields the
// same batches.
func SplitBatches(alloc reward.Allocation, size int) ([]Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}

	recipients := alloc.Recipients()
	batches := make([]Batch, 0, (len(recipients)+size-1)/size)
	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}
		entries := make([]Entry, 0, end-start)
		for _, recipient := range recipients[start:end] {
			entries = append(entries, Entry{Recipient: recipient, Amount: alloc[recipient]})
		}
		batches = append(batches, Batch{Index: len(batches), Entries: entries})
	}
	return batches, nil
}
