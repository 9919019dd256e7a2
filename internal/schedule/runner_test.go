package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSchedule(t *testing.T) {
	r := New(context.Background(), nil)
	_, err := r.Add("checkpoint", "not a spec", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestNextFollowsSchedule(t *testing.T) {
	r := New(context.Background(), nil)
	id, err := r.Add("checkpoint", "0 0 * * 4", func(context.Context) error { return nil })
	require.NoError(t, err)

	r.Start()
	defer r.Stop()

	next := r.Next(id)
	require.False(t, next.IsZero())
	assert.Equal(t, time.Thursday, next.Weekday())
	assert.Equal(t, 0, next.Hour())
	assert.Equal(t, 0, next.Minute())
}

func TestRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(ctx, nil)

	var runs atomic.Int32
	_, err := r.Add("tick", "@every 1s", func(context.Context) error {
		runs.Add(1)
		cancel()
		return nil
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		r.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
	assert.Equal(t, int32(1), runs.Load())
}
