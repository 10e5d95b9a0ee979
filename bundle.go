package wrench

import (
	"database/sql"

	"github.com/TheGringo-ai/wrench/internal/engine"
	"github.com/TheGringo-ai/wrench/internal/persistence"
	"github.com/TheGringo-ai/wrench/pkg/sweeper"
)

// SQLiteBundle wires together a durable Engine, its event trail, and a
// leased Sweeper, all sharing the same SQLite database. Work orders, the
// event trail, and sweep leases survive restarts; two processes pointed at
// the same database file will not double-fire escalation levels.
type SQLiteBundle struct {
	Engine  Engine
	Sweeper *sweeper.Sweeper

	*SweepRunner
}

// NewSQLiteBundle constructs the bundle on the provided *sql.DB.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:wrench.db?_journal=WAL")
//	bundle, err := wrench.NewSQLiteBundle(db, dir, sweeper.Config{})
//	_ = bundle.Start(ctx, time.Minute)
func NewSQLiteBundle(db *sql.DB, dir TechnicianDirectory, cfg sweeper.Config) (*SQLiteBundle, error) {
	return NewSQLiteBundleWithOptions(db, dir, cfg, EngineOptions{})
}

// NewSQLiteBundleWithOptions is NewSQLiteBundle with engine options.
func NewSQLiteBundleWithOptions(db *sql.DB, dir TechnicianDirectory, cfg sweeper.Config, opts EngineOptions) (*SQLiteBundle, error) {
	store, err := persistence.NewSQLiteWorkOrderStore(db)
	if err != nil {
		return nil, err
	}
	events, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}

	eng, err := engine.NewEngine(engine.Config{
		Persistence: persistence.Persistence{WorkOrders: store, Events: events},
		Directory:   dir,
		Options:     opts,
	})
	if err != nil {
		return nil, err
	}

	sw := sweeper.New(eng, store, cfg)
	return &SQLiteBundle{
		Engine:      eng,
		Sweeper:     sw,
		SweepRunner: NewSweepRunner(sw),
	}, nil
}
