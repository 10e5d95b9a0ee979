package wrench

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/TheGringo-ai/wrench/internal/engine"
	"github.com/TheGringo-ai/wrench/internal/persistence"
	"github.com/TheGringo-ai/wrench/pkg/sweeper"
)

// SweepRunner drives a Sweeper on a fixed period in a background goroutine.
type SweepRunner struct {
	Sweeper *sweeper.Sweeper

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewSweepRunner wraps an existing Sweeper in a Start/Stop loop.
func NewSweepRunner(sw *sweeper.Sweeper) *SweepRunner {
	return &SweepRunner{Sweeper: sw}
}

// Start launches the sweep loop with the given period. The first sweep runs
// after one period, not immediately; call Sweeper.SweepOnce for an eager
// pass. If Start is called again without Stop, it returns an error.
func (r *SweepRunner) Start(ctx context.Context, period time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("wrench: SweepRunner already started")
	}
	if period <= 0 {
		return errors.New("wrench: sweep period must be positive")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Sweeper.SweepOnce(ctx); err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// A failed pass is retried on the next tick; log
					// and keep the loop alive.
					log.Printf("wrench: sweep pass failed: %v", err)
				}
			}
		}
	}()

	return nil
}

// Stop cancels the sweep loop and waits for it to exit.
func (r *SweepRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// LocalRunner bundles an in-memory Engine with a Sweeper and its runner, for
// development, tests, and simple single-process deployments.
//
// Typical usage:
//
//	dir := directory.NewInMemoryDirectory(techs...)
//	runner := wrench.NewLocalRunner(dir)
//	wo, _ := runner.Engine.CreateWorkOrder(ctx, wrench.NewWorkOrderRequest{Title: "fix pump"})
//	_ = runner.Start(ctx, time.Minute)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine is the in-memory work order engine used by this runner.
	Engine Engine

	*SweepRunner
}

// NewLocalRunner constructs a LocalRunner with default engine options.
func NewLocalRunner(dir TechnicianDirectory) *LocalRunner {
	return NewLocalRunnerWithOptions(dir, EngineOptions{})
}

// NewLocalRunnerWithOptions constructs a LocalRunner with the given engine
// options. The engine and the sweeper share one in-memory store, so sweep
// leases and operations see the same records.
func NewLocalRunnerWithOptions(dir TechnicianDirectory, opts EngineOptions) *LocalRunner {
	store := persistence.NewInMemoryStore()
	eng, err := engine.NewEngine(engine.Config{
		Persistence: persistence.Persistence{
			WorkOrders: store,
			Events:     persistence.NewInMemoryEventStore(),
		},
		Directory: dir,
		Options:   opts,
	})
	if err != nil {
		// Only reachable through an invalid seed rule.
		panic(err)
	}

	sw := sweeper.New(eng, store, sweeper.Config{})
	return &LocalRunner{
		Engine:      eng,
		SweepRunner: NewSweepRunner(sw),
	}
}
