package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestDoSucceedsAfterRetries(t *testing.T) {
	calls := 0
	attempts, err := Fixed(5, time.Millisecond).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 || calls != 3 {
		t.Fatalf("attempts = %d, calls = %d", attempts, calls)
	}
}

func TestDoExhausts(t *testing.T) {
	var retried []int
	policy := Fixed(3, 0)
	policy.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	attempts, err := policy.Do(context.Background(), func(context.Context) error { return errBoom })
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
	if len(retried) != 2 || retried[0] != 1 || retried[1] != 2 {
		t.Fatalf("retry callbacks = %v", retried)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	policy := Fixed(5, 0)
	policy.Retryable = func(err error) bool { return !errors.Is(err, errBoom) }

	attempts, err := policy.Do(context.Background(), func(context.Context) error { return errBoom })
	if !errors.Is(err, errBoom) || attempts != 1 {
		t.Fatalf("attempts = %d, err = %v", attempts, err)
	}
}

func TestDoZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, _ = Policy{}.Do(context.Background(), func(context.Context) error {
		calls++
		return errBoom
	})
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoCancelledWhileWaiting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Fixed(5, time.Hour).Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDoKeepsDelayFixed(t *testing.T) {
	const delay = 20 * time.Millisecond
	var stamps []time.Time
	_, err := Fixed(4, delay).Do(context.Background(), func(context.Context) error {
		stamps = append(stamps, time.Now())
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if len(stamps) != 4 {
		t.Fatalf("attempts = %d, want 4", len(stamps))
	}
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		if gap < delay || gap > 10*delay {
			t.Fatalf("gap %d = %s, want about %s", i, gap, delay)
		}
	}
}
