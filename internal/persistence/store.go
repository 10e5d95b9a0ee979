package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// ErrWorkOrderNotFound is returned when a work order is not found.
var ErrWorkOrderNotFound = errors.New("work order not found")

// Filter is used to select work orders from the store.
// Empty string / zero values mean "no filter" for that field.
type Filter struct {
	Status     api.Status
	AssigneeID string
	Priority   api.Priority

	// ActiveOnly excludes terminal work orders.
	ActiveOnly bool

	// WithSLA keeps only work orders that have an SLA applied.
	WithSLA bool
}

// Match reports whether the work order passes the filter. Stores whose
// backend cannot express every field natively apply it payload-side, so
// stale index entries can never surface mismatched records.
func (f Filter) Match(wo *api.WorkOrder) bool {
	if f.Status != "" && wo.Status != f.Status {
		return false
	}
	if f.AssigneeID != "" && wo.AssigneeID != f.AssigneeID {
		return false
	}
	if f.Priority != "" && wo.Priority != f.Priority {
		return false
	}
	if f.ActiveOnly && wo.Status.Terminal() {
		return false
	}
	if f.WithSLA && wo.SLA == nil {
		return false
	}
	return true
}

// WorkOrderStore handles storage of work orders.
//
// Implementations must return records that the caller may freely mutate
// without affecting stored state.
type WorkOrderStore interface {
	SaveWorkOrder(wo *api.WorkOrder) error
	UpdateWorkOrder(wo *api.WorkOrder) error
	GetWorkOrder(id string) (*api.WorkOrder, error)
	ListWorkOrders(filter Filter) ([]*api.WorkOrder, error)

	// TryAcquireLease attempts to acquire (or re-acquire) a lease on a work order.
	// If the work order is currently leased by another owner and the lease has
	// not expired, it returns acquired=false, err=nil.
	//
	// Implementations should treat a lease owned by the same owner as re-entrant.
	TryAcquireLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) (acquired bool, err error)

	// RenewLease extends an existing lease owned by 'owner' for the given ttl.
	// Renewing a lease that is missing, expired, or held by another owner
	// returns api.ErrWorkOrderLocked.
	RenewLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) error

	// ReleaseLease releases a lease if it is owned by 'owner'. Releasing an
	// absent lease is a no-op; releasing a live lease held by another owner
	// returns api.ErrWorkOrderLocked.
	ReleaseLease(ctx context.Context, workOrderID, owner string) error
}
