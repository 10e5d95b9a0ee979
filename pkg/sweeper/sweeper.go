// Package sweeper implements the periodic escalation pass. A Sweeper walks
// every non-terminal work order that has an SLA and asks the engine to
// record overdue escalations. It never performs lifecycle transitions
// itself; the engine's EscalateOverdue is the only write it triggers.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/TheGringo-ai/wrench/internal/persistence"
	"github.com/TheGringo-ai/wrench/pkg/api"
)

// DefaultLeaseTTL bounds how long a crashed sweeper can block others from
// processing a work order.
const DefaultLeaseTTL = 30 * time.Second

// Config tunes a Sweeper.
type Config struct {
	// Owner identifies this sweeper in store leases. Defaults to a
	// random UUID per Sweeper.
	Owner string

	// LeaseTTL is how long a per-record lease is held. Defaults to
	// DefaultLeaseTTL.
	LeaseTTL time.Duration

	// Logger receives per-record sweep failures. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Sweeper walks sla-carrying work orders and records overdue escalations
// through the engine. When a store is provided, it takes a short lease per
// work order so concurrent sweepers (another process, or a restart racing
// the old instance) never double-fire a level.
type Sweeper struct {
	engine api.Engine
	store  persistence.WorkOrderStore
	cfg    Config
}

// New creates a Sweeper. store may be nil, which disables cross-process
// lease dedup; in-process serialization still comes from the engine's
// per-work-order locks.
func New(engine api.Engine, store persistence.WorkOrderStore, cfg Config) *Sweeper {
	if cfg.Owner == "" {
		cfg.Owner = uuid.NewString()
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = DefaultLeaseTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sweeper{engine: engine, store: store, cfg: cfg}
}

// Owner returns the lease owner identity of this sweeper.
func (s *Sweeper) Owner() string { return s.cfg.Owner }

// SweepOnce runs a single pass and returns how many escalations it
// recorded. A failure on one record is logged and does not abort the pass;
// only a failure to list work orders at all is returned as an error.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	orders, err := s.engine.ListWorkOrders(ctx, api.ListOptions{
		ActiveOnly: true,
		WithSLA:    true,
	})
	if err != nil {
		return 0, err
	}

	recorded := 0
	for _, wo := range orders {
		if ctx.Err() != nil {
			return recorded, ctx.Err()
		}
		n, err := s.sweepOne(ctx, wo.ID)
		if err != nil {
			s.cfg.Logger.WarnContext(ctx, "sweep_record_failed",
				slog.String("work_order_id", wo.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		recorded += n
	}
	return recorded, nil
}

func (s *Sweeper) sweepOne(ctx context.Context, id string) (int, error) {
	if s.store != nil {
		acquired, err := s.store.TryAcquireLease(ctx, id, s.cfg.Owner, s.cfg.LeaseTTL)
		if err != nil {
			return 0, err
		}
		if !acquired {
			// Another sweeper has this record; it will handle it.
			return 0, nil
		}
		defer func() {
			_ = s.store.ReleaseLease(ctx, id, s.cfg.Owner)
		}()
	}

	escs, err := s.engine.EscalateOverdue(ctx, id)
	if err != nil {
		// The record moved on between listing and escalating; not a
		// sweep failure.
		if errors.Is(err, api.ErrNotFound) || errors.Is(err, api.ErrNoSLA) {
			return 0, nil
		}
		return 0, err
	}
	return len(escs), nil
}
