// Package api contains the core building blocks used by the wrench work
// order engine. It provides the types that describe work orders, the Engine
// interface, and the contracts for technician directories and observers.
//
// Most users interact with the higher-level wrench package, which re-exports
// selected types and helpers from this package. The api package is intended
// for advanced use cases, custom integrations, or contributors extending the
// engine itself.
//
// # Concepts
//
// The api package centers around a small set of concepts:
//
//   - Work orders and their status graph
//   - Approval rounds
//   - Technician directories and auto-assignment
//   - SLA clocks and escalation
//   - Observability
//
// # Work Orders
//
// A WorkOrder moves through a fixed status graph: OPEN ->
// PENDING_APPROVAL -> APPROVED or REJECTED, APPROVED (or OPEN) -> ASSIGNED
// -> IN_PROGRESS -> COMPLETED or ON_HOLD, and any non-terminal status ->
// CANCELLED. REJECTED, COMPLETED, and CANCELLED are terminal. Every
// mutation is validated against this graph; out-of-graph moves fail with
// ErrInvalidTransition and leave the stored record untouched.
//
// # Approvals
//
// An approval round is opened by SubmitForApproval with an explicit approver
// set. Approval is unanimous: the order reaches APPROVED only after every
// approver has approved. A single rejection is absorbing; it ends the round
// immediately. Every decision lands in an ordered, append-only log on the
// order.
//
// # Assignment
//
// AutoAssign matches an order's required skills against a
// TechnicianDirectory and picks the least-loaded qualified technician,
// breaking ties by skill fit and then by ID. Capacity is enforced through
// the directory's atomic Reserve operation, so concurrent assignments can
// never overload a technician.
//
// # SLA
//
// An SLA attaches two independent deadline channels to an order: respond
// and resolve, both anchored at the moment the SLA is applied. SLAStatus
// reports whole-minute due-in values (negative when overdue) without taking
// locks. Overdue channels gain escalation levels, at most one per channel
// per escalation pass.
//
// # Observability
//
// The api package defines the Observer interface, which engines and
// sweepers use to report lifecycle events and metrics.
//
// Observers can be used to:
//
//   - Log status transitions, approvals, and escalations
//   - Collect metrics (e.g. counts of assignments and completions)
//   - Integrate with external monitoring systems
//
// The wrench package exposes ready-made implementations such as logging and
// basic in-memory metrics, along with helpers to combine multiple observers.
//
// # Usage
//
// Most applications should start from the wrench package, using the Engine
// constructors provided there. The api package is useful when you need
// lower-level access, a custom TechnicianDirectory, or when contributing
// changes to the core engine.
//
// See the wrench package documentation and the examples directory for
// end-to-end usage.
package api
