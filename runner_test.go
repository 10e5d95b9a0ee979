package wrench

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/TheGringo-ai/wrench/pkg/directory"
)

func TestSweepRunner_PeriodicSweep(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clock := &testClock{now: time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)}
	runner := NewLocalRunnerWithOptions(directory.NewInMemoryDirectory(), EngineOptions{Now: clock.Now})

	wo, err := runner.Engine.CreateWorkOrder(ctx, NewWorkOrderRequest{Title: "fan bearing noise"})
	require.NoError(t, err)
	_, err = runner.Engine.SetSLA(ctx, wo.ID, "gold", 30, 240)
	require.NoError(t, err)

	// Past the response deadline before the loop even starts.
	clock.Advance(31 * time.Minute)

	require.NoError(t, runner.Start(ctx, 10*time.Millisecond))
	defer runner.Stop()

	require.Eventually(t, func() bool {
		got, err := runner.Engine.GetWorkOrder(ctx, wo.ID)
		if err != nil {
			return false
		}
		return got.SLA.Level(ChannelResponse) >= 1
	}, 5*time.Second, 10*time.Millisecond, "background sweep never escalated")

	runner.Stop()

	got, err := runner.Engine.GetWorkOrder(ctx, wo.ID)
	require.NoError(t, err)

	// Only the response deadline has passed; per-channel levels climb one
	// step per pass and stay strictly increasing.
	require.Equal(t, 0, got.SLA.Level(ChannelResolve))
	levels := map[SLAChannel]int{}
	for _, esc := range got.SLA.Escalations {
		require.Equal(t, levels[esc.Channel]+1, esc.Level, "levels must increase one step at a time")
		levels[esc.Channel] = esc.Level
	}
}

func TestSweepRunner_StartStop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	runner := NewLocalRunner(directory.NewInMemoryDirectory())

	require.Error(t, runner.Start(ctx, 0), "non-positive period must be rejected")

	require.NoError(t, runner.Start(ctx, time.Millisecond))
	require.Error(t, runner.Start(ctx, time.Millisecond), "double start must fail")

	runner.Stop()
	// Stop is idempotent.
	runner.Stop()

	// A stopped runner can start again.
	require.NoError(t, runner.Start(ctx, time.Millisecond))
	runner.Stop()
}

func TestSweepRunner_StopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	runner := NewLocalRunner(directory.NewInMemoryDirectory())

	require.NoError(t, runner.Start(ctx, time.Millisecond))
	cancel()

	// The loop exits on its own; Stop only has to reap it.
	runner.Stop()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
