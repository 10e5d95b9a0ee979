package api

import (
	"context"
	"errors"
)

// Sentinel errors returned by Engine operations. They are always wrapped
// with context via fmt.Errorf("%w: ..."), so match with errors.Is.
var (
	// ErrNotFound is returned when no work order exists with the given ID.
	ErrNotFound = errors.New("work order not found")

	// ErrInvalidTransition is returned when an operation would move a work
	// order along an edge the status graph does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNoApprovers is returned by SubmitForApproval when the approver set
	// is empty after applying configured defaults.
	ErrNoApprovers = errors.New("no approvers specified")

	// ErrUnauthorizedApprover is returned when the acting approver is not
	// in the order's approver set.
	ErrUnauthorizedApprover = errors.New("approver not authorized")

	// ErrAlreadyActed is returned when an approver who already recorded a
	// decision tries to decide again.
	ErrAlreadyActed = errors.New("approver already acted")

	// ErrNoEligibleTechnician is returned by AutoAssign when no technician
	// matches the required skills with capacity to spare.
	ErrNoEligibleTechnician = errors.New("no eligible technician")

	// ErrDuplicateSLA is returned when an SLA is applied to an order that
	// already has one.
	ErrDuplicateSLA = errors.New("sla already applied")

	// ErrInvalidSLAConfig is returned for non-positive deadline minutes.
	ErrInvalidSLAConfig = errors.New("invalid sla configuration")

	// ErrNoSLA is returned by SLA operations on an order without an SLA.
	ErrNoSLA = errors.New("no sla applied")

	// ErrWorkOrderLocked is returned by lease operations when another
	// owner holds a live lease on the work order.
	ErrWorkOrderLocked = errors.New("work order locked")
)

// Engine is the work order workflow engine API. All operations are
// synchronous; mutating operations on the same work order are serialized,
// and each either fully applies or leaves the stored record untouched.
type Engine interface {
	// CreateWorkOrder stores a new work order in status OPEN.
	// Missing fields receive defaults (see NewWorkOrder).
	CreateWorkOrder(ctx context.Context, nw NewWorkOrder) (*WorkOrder, error)

	// GetWorkOrder looks up a work order by ID.
	GetWorkOrder(ctx context.Context, id string) (*WorkOrder, error)

	// ListWorkOrders returns work orders matching the given options.
	// If options are zero-valued, all orders are returned.
	ListWorkOrders(ctx context.Context, opts ListOptions) ([]*WorkOrder, error)

	// SubmitForApproval moves an OPEN order to PENDING_APPROVAL with the
	// given approver set. If approverIDs is empty the configured default
	// approvers are used; if both are empty it returns ErrNoApprovers.
	// Duplicate IDs are collapsed.
	SubmitForApproval(ctx context.Context, id string, approverIDs []string) (*WorkOrder, error)

	// Approve records an APPROVE decision. The order reaches APPROVED only
	// once every approver has approved; until then it stays
	// PENDING_APPROVAL. Approving an order the caller is not an approver
	// of returns ErrUnauthorizedApprover; deciding twice returns
	// ErrAlreadyActed.
	Approve(ctx context.Context, id, approverID, note string) (*WorkOrder, error)

	// Reject records a REJECT decision and immediately moves the order to
	// REJECTED, regardless of prior approvals. Remaining approvers can no
	// longer act.
	Reject(ctx context.Context, id, approverID, note string) (*WorkOrder, error)

	// Cancel moves any non-terminal order to CANCELLED and releases the
	// assignee's capacity reservation, if any.
	Cancel(ctx context.Context, id, actor, reason string) (*WorkOrder, error)

	// AutoAssign selects the best eligible technician for an OPEN or
	// APPROVED order and moves it to ASSIGNED. Eligibility, ranking, and
	// the capacity reservation contract are described in the package
	// documentation. Returns ErrNoEligibleTechnician when nobody fits.
	AutoAssign(ctx context.Context, id string) (*WorkOrder, error)

	// StartWork moves an ASSIGNED order to IN_PROGRESS. It counts as the
	// first qualifying response: if an SLA is applied and
	// FirstRespondedAt is unset, it is stamped now.
	StartWork(ctx context.Context, id, technicianID string) (*WorkOrder, error)

	// HoldWork pauses an IN_PROGRESS order (-> ON_HOLD).
	HoldWork(ctx context.Context, id, actor, reason string) (*WorkOrder, error)

	// ResumeWork resumes an ON_HOLD order (-> IN_PROGRESS).
	ResumeWork(ctx context.Context, id, actor string) (*WorkOrder, error)

	// CompleteWork moves an IN_PROGRESS order to COMPLETED, records the
	// completion notes, stamps SLA.ResolvedAt when an SLA is applied, and
	// releases the assignee's capacity reservation.
	CompleteWork(ctx context.Context, id, actor, notes string) (*WorkOrder, error)

	// SetSLA applies a named SLA with the given deadline budgets, anchored
	// at the current time. Applying twice returns ErrDuplicateSLA;
	// non-positive minutes return ErrInvalidSLAConfig.
	SetSLA(ctx context.Context, id, name string, respondMins, resolveMins int) (*WorkOrder, error)

	// ApplySLAPreset resolves a configured preset by name and applies it
	// through the same rules as SetSLA.
	ApplySLAPreset(ctx context.Context, id, presetName string) (*WorkOrder, error)

	// RecordResponse stamps SLA.FirstRespondedAt if it is not already set.
	// Further calls are no-ops. Requires a non-terminal order with an SLA.
	RecordResponse(ctx context.Context, id, actor string) (*WorkOrder, error)

	// SLAStatus computes the order's standing against its deadlines at the
	// engine's current clock. It is a pure read: no locks taken, nothing
	// mutated.
	SLAStatus(ctx context.Context, id string) (*SLAStatus, error)

	// EscalateOverdue records at most one new escalation level per overdue
	// channel and returns the escalations it recorded (possibly none).
	// Terminal orders never escalate.
	EscalateOverdue(ctx context.Context, id string) ([]Escalation, error)

	// ListEvents returns the append-only event trail for a work order,
	// oldest first.
	ListEvents(ctx context.Context, id string) ([]WorkOrderEvent, error)

	// PutAssignmentRule adds or replaces an assignment rule by ID.
	// Rules live in memory; seed them via Config.Rules or this method.
	PutAssignmentRule(rule AssignmentRule) error

	// ListAssignmentRules returns all rules ordered by Rank, then Name.
	ListAssignmentRules() []AssignmentRule

	// ListSLAPresets returns the configured SLA presets.
	ListSLAPresets() []SLAPreset
}
