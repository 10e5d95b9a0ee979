// Package wrench provides an embeddable work order workflow and SLA engine
// for maintenance systems.
//
// Wrench is the coordination core behind a CMMS-style backend: it owns the
// work order lifecycle state machine, approval bookkeeping, technician
// auto-assignment, and SLA deadline tracking with escalations. It is a
// library, not a service: transport, auth, document storage, and rendering
// are the caller's concern. Callers invoke operations synchronously and run
// the escalation sweeper as a background loop.
//
// # Core Concepts
//
//  1. Engine
//  2. TechnicianDirectory
//  3. Sweeper
//  4. Observer
//  5. LocalRunner
//
// # Engine
//
// The Engine is the single authority over work order state. Every mutation
// goes through its transition table; operations on the same work order are
// serialized, and each either fully commits or leaves the record untouched.
//
// The lifecycle:
//
//	OPEN -> PENDING_APPROVAL -> {APPROVED | REJECTED}
//	APPROVED -> ASSIGNED -> IN_PROGRESS -> {COMPLETED | ON_HOLD}
//	any non-terminal state -> CANCELLED
//
// Approval is unanimous: the order reaches APPROVED only when every approver
// in the submitted set has approved, and a single rejection immediately ends
// the round. AutoAssign ranks eligible technicians by workload, then skill
// match, then ID, and reserves a capacity slot atomically through the
// directory, so the per-technician cap holds under concurrent assignment.
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability, includes the event trail)
//   - Postgres
//   - Redis
//   - MongoDB
//
// # TechnicianDirectory
//
// The engine does not own the technician roster; it consumes it through the
// TechnicianDirectory interface and only mutates the one counter it is
// responsible for, via the atomic Reserve/Release contract. The directory
// package ships in-memory, SQLite, and Redis implementations.
//
// # Sweeper
//
// SLA deadlines are tracked per work order on two independent channels,
// response and resolution. The Sweeper periodically walks every active work
// order carrying an SLA and records at most one new escalation level per
// channel per pass, so levels advance 1, 2, 3, ... at sweep cadence. With a
// durable store it takes short per-record leases, keeping concurrent
// sweepers from double-firing a level. A failure on one record never aborts
// the pass.
//
// # Observer
//
// Observers receive lifecycle callbacks (created, status changed, approval
// recorded, assigned, SLA applied, escalated) for logging and metrics.
// LoggingObserver writes structured slog lines; BasicMetrics keeps atomic
// counters; NewCompositeObserver fans out to several.
//
// # LocalRunner
//
// LocalRunner bundles an in-memory engine with a sweeper loop for
// development and tests:
//
//	dir := directory.NewInMemoryDirectory(
//	    wrench.Technician{ID: "t1", Skills: []string{"hvac"}},
//	)
//	runner := wrench.NewLocalRunner(dir)
//
//	wo, _ := runner.Engine.CreateWorkOrder(ctx, wrench.NewWorkOrderRequest{
//	    Title:          "AC unit down",
//	    Priority:       wrench.PriorityHigh,
//	    RequiredSkills: []string{"hvac"},
//	})
//	wo, _ = runner.Engine.SetSLA(ctx, wo.ID, "standard", 30, 240)
//	wo, _ = runner.Engine.AutoAssign(ctx, wo.ID)
//
//	_ = runner.Start(ctx, time.Minute)
//	defer runner.Stop()
//
// For durable single-node deployments, NewSQLiteBundle wires the same pieces
// on one *sql.DB. For examples, see the /examples directory.
package wrench
