package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wech4801-eng/mirror-frame-forge/internal/scheduler"
)

type countingSender struct {
	calls atomic.Int32
	err   error
}

func (c *countingSender) SendDue(ctx context.Context) (int, error) {
	c.calls.Add(1)
	return 1, c.err
}

func TestSchedulerTicksOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &countingSender{}
	s := scheduler.New(sender, time.Minute, clock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return sender.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	clock.BlockUntil(1)
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return sender.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return sender.calls.Load() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerKeepsRunningAfterError(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &countingSender{err: errors.New("database down")}
	s := scheduler.New(sender, time.Second, clock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	clock.BlockUntil(1)
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return sender.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
}

func TestNewDefaultsInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	sender := &countingSender{}
	s := scheduler.New(sender, 0, clock, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	clock.BlockUntil(1)
	clock.Advance(29 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), sender.calls.Load())
	clock.Advance(time.Second)
	require.Eventually(t, func() bool { return sender.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
}
