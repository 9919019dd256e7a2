package dispense

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

type memoryLedger struct {
	mu          sync.Mutex
	paid        map[string]decimal.Decimal
	submissions int
	// failures maps a batch's first recipient to the errors returned in order.
	failures map[string][]error
	always   map[string]error
	// checkErrs fails AlreadyPaid for a recipient.
	checkErrs map[string]error
	checks    int
	onSubmit  func(Batch)
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		paid:      make(map[string]decimal.Decimal),
		failures:  make(map[string][]error),
		always:    make(map[string]error),
		checkErrs: make(map[string]error),
	}
}

func (l *memoryLedger) AlreadyPaid(_ context.Context, recipient string, amount decimal.Decimal) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.checks++
	if err, ok := l.checkErrs[recipient]; ok {
		return false, err
	}
	got, ok := l.paid[recipient]
	return ok && got.Equal(amount), nil
}

func (l *memoryLedger) SubmitBatch(_ context.Context, batch Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions++
	if l.onSubmit != nil {
		l.onSubmit(batch)
	}
	key := batch.Entries[0].Recipient
	if err, ok := l.always[key]; ok {
		return err
	}
	if queue := l.failures[key]; len(queue) > 0 {
		l.failures[key] = queue[1:]
		return queue[0]
	}
	for _, e := range batch.Entries {
		l.paid[e.Recipient] = l.paid[e.Recipient].Add(e.Amount)
	}
	return nil
}

type memoryReports struct {
	saved []Report
}

func (s *memoryReports) SaveReport(_ context.Context, r Report) error {
	s.saved = append(s.saved, r)
	return nil
}

type memoryChannel struct {
	payloads []Payload
	errs     []error
}

func (c *memoryChannel) SubmitViaMultiparty(_ context.Context, p Payload) error {
	if len(c.errs) > 0 {
		err := c.errs[0]
		c.errs = c.errs[1:]
		return err
	}
	c.payloads = append(c.payloads, p)
	return nil
}

var errTimeout = errors.New("i/o timeout")
