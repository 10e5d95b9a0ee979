package sweeper

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/TheGringo-ai/wrench/internal/engine"
	"github.com/TheGringo-ai/wrench/internal/persistence"
	"github.com/TheGringo-ai/wrench/pkg/api"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var t0 = time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestWorld builds an engine on a shared in-memory store so the sweeper
// can take leases against the same records the engine mutates.
func newTestWorld(t *testing.T) (api.Engine, *persistence.InMemoryStore, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: t0}
	store := persistence.NewInMemoryStore()

	eng, err := engine.NewEngine(engine.Config{
		Persistence: persistence.Persistence{
			WorkOrders: store,
			Events:     persistence.NewInMemoryEventStore(),
		},
		Options: api.EngineOptions{Now: clock.Now},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, store, clock
}

func newOverdueOrder(t *testing.T, eng api.Engine, respondMins, resolveMins int) string {
	t.Helper()
	ctx := context.Background()

	wo, err := eng.CreateWorkOrder(ctx, api.NewWorkOrder{Title: "fix the pump"})
	if err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}
	if _, err := eng.SetSLA(ctx, wo.ID, "standard", respondMins, resolveMins); err != nil {
		t.Fatalf("SetSLA: %v", err)
	}
	return wo.ID
}

func TestSweepOnce_RecordsEscalations(t *testing.T) {
	eng, store, clock := newTestWorld(t)
	ctx := context.Background()

	id := newOverdueOrder(t, eng, 30, 240)
	s := New(eng, store, Config{Logger: quietLogger()})

	// Before any deadline passes, nothing fires.
	n, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 0 {
		t.Fatalf("recorded %d escalations before the deadline", n)
	}

	// Past the response deadline only.
	clock.Advance(31 * time.Minute)
	n, err = s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("recorded %d escalations, want 1", n)
	}

	// Past the resolve deadline: both channels fire one more level each.
	clock.Advance(211 * time.Minute)
	n, err = s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 2 {
		t.Fatalf("recorded %d escalations, want 2", n)
	}

	wo, err := eng.GetWorkOrder(ctx, id)
	if err != nil {
		t.Fatalf("GetWorkOrder: %v", err)
	}
	if got := wo.SLA.Level(api.ChannelResponse); got != 2 {
		t.Fatalf("response level = %d, want 2", got)
	}
	if got := wo.SLA.Level(api.ChannelResolve); got != 1 {
		t.Fatalf("resolve level = %d, want 1", got)
	}
}

func TestSweepOnce_SkipsLeasedRecords(t *testing.T) {
	eng, store, clock := newTestWorld(t)
	ctx := context.Background()

	id := newOverdueOrder(t, eng, 30, 240)
	clock.Advance(31 * time.Minute)

	// Another sweeper holds the record.
	acquired, err := store.TryAcquireLease(ctx, id, "rival-sweeper", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("TryAcquireLease: acquired=%v err=%v", acquired, err)
	}

	s := New(eng, store, Config{Logger: quietLogger()})
	n, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 0 {
		t.Fatalf("recorded %d escalations on a leased record", n)
	}

	wo, _ := eng.GetWorkOrder(ctx, id)
	if len(wo.SLA.Escalations) != 0 {
		t.Fatalf("leased record escalated anyway: %+v", wo.SLA.Escalations)
	}

	// Once the rival lets go, the next pass picks it up.
	if err := store.ReleaseLease(ctx, id, "rival-sweeper"); err != nil {
		t.Fatalf("ReleaseLease: %v", err)
	}
	n, err = s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("recorded %d escalations after release, want 1", n)
	}
}

func TestSweepOnce_ReleasesItsOwnLeases(t *testing.T) {
	eng, store, clock := newTestWorld(t)
	ctx := context.Background()

	id := newOverdueOrder(t, eng, 30, 240)
	clock.Advance(31 * time.Minute)

	s := New(eng, store, Config{Logger: quietLogger()})
	if _, err := s.SweepOnce(ctx); err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}

	// The per-record lease must be gone after the pass.
	acquired, err := store.TryAcquireLease(ctx, id, "someone-else", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("lease still held after sweep: acquired=%v err=%v", acquired, err)
	}
}

func TestSweepOnce_IgnoresTerminalAndSLAFreeOrders(t *testing.T) {
	eng, store, clock := newTestWorld(t)
	ctx := context.Background()

	// No SLA at all.
	if _, err := eng.CreateWorkOrder(ctx, api.NewWorkOrder{Title: "no sla"}); err != nil {
		t.Fatalf("CreateWorkOrder: %v", err)
	}

	// Cancelled with an overdue SLA.
	id := newOverdueOrder(t, eng, 30, 240)
	if _, err := eng.Cancel(ctx, id, "planner", "superseded"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	clock.Advance(48 * time.Hour)

	s := New(eng, store, Config{Logger: quietLogger()})
	n, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 0 {
		t.Fatalf("recorded %d escalations, want 0", n)
	}
}

func TestSweepOnce_NilStoreStillSweeps(t *testing.T) {
	eng, _, clock := newTestWorld(t)
	ctx := context.Background()

	newOverdueOrder(t, eng, 30, 240)
	clock.Advance(31 * time.Minute)

	s := New(eng, nil, Config{Logger: quietLogger()})
	n, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if n != 1 {
		t.Fatalf("recorded %d escalations, want 1", n)
	}
}

func TestNew_Defaults(t *testing.T) {
	eng, store, _ := newTestWorld(t)

	a := New(eng, store, Config{})
	b := New(eng, store, Config{})

	if a.Owner() == "" || a.Owner() == b.Owner() {
		t.Fatalf("owners not unique: %q vs %q", a.Owner(), b.Owner())
	}
	if a.cfg.LeaseTTL != DefaultLeaseTTL {
		t.Fatalf("lease ttl = %v, want %v", a.cfg.LeaseTTL, DefaultLeaseTTL)
	}
	if a.cfg.Logger == nil {
		t.Fatalf("logger not defaulted")
	}
}
