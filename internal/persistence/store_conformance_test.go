package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// runWorkOrderStoreTests exercises the WorkOrderStore contract against any
// implementation.
func runWorkOrderStoreTests(t *testing.T, store WorkOrderStore) {
	t.Helper()

	now := time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)
	responded := now.Add(10 * time.Minute)

	wo := &api.WorkOrder{
		ID:               "wo-1",
		Number:           "WO-20260107-090000",
		Title:            "fix the pump",
		Status:           api.StatusPendingApproval,
		Priority:         api.PriorityHigh,
		WorkType:         api.WorkTypeCorrective,
		RequiredSkills:   []string{"hvac"},
		PendingApprovers: []string{"m1", "m2"},
		Approvals: []api.Approval{
			{ApproverID: "m0", Decision: api.DecisionApprove, Note: "ok", DecidedAt: now},
		},
		SLA: &api.SLA{
			Name:             "standard",
			RespondMins:      30,
			ResolveMins:      240,
			AnchoredAt:       now,
			FirstRespondedAt: &responded,
			Escalations:      []api.Escalation{{Channel: api.ChannelResolve, Level: 1, At: now}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := store.SaveWorkOrder(wo); err != nil {
		t.Fatalf("SaveWorkOrder: %v", err)
	}

	got, err := store.GetWorkOrder("wo-1")
	if err != nil {
		t.Fatalf("GetWorkOrder: %v", err)
	}
	if got.Title != wo.Title || got.Status != wo.Status || got.Priority != wo.Priority {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if len(got.PendingApprovers) != 2 || len(got.Approvals) != 1 {
		t.Fatalf("nested collections lost: %+v", got)
	}
	if got.SLA == nil || got.SLA.FirstRespondedAt == nil || !got.SLA.FirstRespondedAt.Equal(responded) {
		t.Fatalf("sla lost: %+v", got.SLA)
	}
	if len(got.SLA.Escalations) != 1 || got.SLA.Escalations[0].Level != 1 {
		t.Fatalf("escalations lost: %+v", got.SLA)
	}

	// Returned records are detached from stored state.
	got.Status = api.StatusCancelled
	got.PendingApprovers[0] = "intruder"
	again, _ := store.GetWorkOrder("wo-1")
	if again.Status != api.StatusPendingApproval || again.PendingApprovers[0] != "m1" {
		t.Fatalf("store state aliased to returned record: %+v", again)
	}

	// Update.
	wo.Status = api.StatusApproved
	wo.PendingApprovers = nil
	if err := store.UpdateWorkOrder(wo); err != nil {
		t.Fatalf("UpdateWorkOrder: %v", err)
	}
	got, _ = store.GetWorkOrder("wo-1")
	if got.Status != api.StatusApproved || len(got.PendingApprovers) != 0 {
		t.Fatalf("update not applied: %+v", got)
	}

	// Unknown IDs.
	if _, err := store.GetWorkOrder("nope"); !errors.Is(err, ErrWorkOrderNotFound) {
		t.Fatalf("get unknown: err = %v, want ErrWorkOrderNotFound", err)
	}
	if err := store.UpdateWorkOrder(&api.WorkOrder{ID: "nope"}); !errors.Is(err, ErrWorkOrderNotFound) {
		t.Fatalf("update unknown: err = %v, want ErrWorkOrderNotFound", err)
	}

	// Listing with filters.
	other := &api.WorkOrder{
		ID:         "wo-2",
		Title:      "inspect roof",
		Status:     api.StatusCompleted,
		Priority:   api.PriorityLow,
		AssigneeID: "t9",
		CreatedAt:  now.Add(time.Minute),
		UpdatedAt:  now.Add(time.Minute),
	}
	if err := store.SaveWorkOrder(other); err != nil {
		t.Fatalf("SaveWorkOrder: %v", err)
	}

	all, err := store.ListWorkOrders(Filter{})
	if err != nil {
		t.Fatalf("ListWorkOrders: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("listed %d, want 2", len(all))
	}

	active, _ := store.ListWorkOrders(Filter{ActiveOnly: true})
	if len(active) != 1 || active[0].ID != "wo-1" {
		t.Fatalf("active = %+v", active)
	}

	withSLA, _ := store.ListWorkOrders(Filter{WithSLA: true})
	if len(withSLA) != 1 || withSLA[0].ID != "wo-1" {
		t.Fatalf("withSLA = %+v", withSLA)
	}

	byAssignee, _ := store.ListWorkOrders(Filter{AssigneeID: "t9"})
	if len(byAssignee) != 1 || byAssignee[0].ID != "wo-2" {
		t.Fatalf("byAssignee = %+v", byAssignee)
	}

	byStatus, _ := store.ListWorkOrders(Filter{Status: api.StatusApproved})
	if len(byStatus) != 1 || byStatus[0].ID != "wo-1" {
		t.Fatalf("byStatus = %+v", byStatus)
	}
}

// runLeaseTests exercises the lease contract against any implementation.
func runLeaseTests(t *testing.T, store WorkOrderStore) {
	t.Helper()
	ctx := context.Background()

	// Some backends keep the lease on the work order record itself, so the
	// leased IDs must exist.
	now := time.Date(2026, 1, 7, 9, 0, 0, 0, time.UTC)
	for _, id := range []string{"wo-lease", "wo-expiry"} {
		wo := &api.WorkOrder{ID: id, Title: "leased", Status: api.StatusOpen, CreatedAt: now, UpdatedAt: now}
		if err := store.SaveWorkOrder(wo); err != nil {
			t.Fatalf("SaveWorkOrder(%s): %v", id, err)
		}
	}

	acquired, err := store.TryAcquireLease(ctx, "wo-lease", "owner-a", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("first acquire: acquired=%v err=%v", acquired, err)
	}

	// Re-entrant for the same owner.
	acquired, err = store.TryAcquireLease(ctx, "wo-lease", "owner-a", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("re-acquire same owner: acquired=%v err=%v", acquired, err)
	}

	// Held: another owner loses the race without an error.
	acquired, err = store.TryAcquireLease(ctx, "wo-lease", "owner-b", time.Minute)
	if err != nil {
		t.Fatalf("acquire as other owner: %v", err)
	}
	if acquired {
		t.Fatalf("owner-b acquired a live lease held by owner-a")
	}

	if err := store.RenewLease(ctx, "wo-lease", "owner-a", time.Minute); err != nil {
		t.Fatalf("renew as holder: %v", err)
	}
	if err := store.RenewLease(ctx, "wo-lease", "owner-b", time.Minute); !errors.Is(err, api.ErrWorkOrderLocked) {
		t.Fatalf("renew as non-holder: err = %v, want ErrWorkOrderLocked", err)
	}

	if err := store.ReleaseLease(ctx, "wo-lease", "owner-b"); !errors.Is(err, api.ErrWorkOrderLocked) {
		t.Fatalf("release as non-holder: err = %v, want ErrWorkOrderLocked", err)
	}
	if err := store.ReleaseLease(ctx, "wo-lease", "owner-a"); err != nil {
		t.Fatalf("release as holder: %v", err)
	}
	// Releasing an absent lease is a no-op.
	if err := store.ReleaseLease(ctx, "wo-lease", "owner-a"); err != nil {
		t.Fatalf("release absent: %v", err)
	}

	// Released: anyone can take it.
	acquired, err = store.TryAcquireLease(ctx, "wo-lease", "owner-b", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("acquire after release: acquired=%v err=%v", acquired, err)
	}

	// Expiry: a stale lease can be stolen.
	acquired, err = store.TryAcquireLease(ctx, "wo-expiry", "owner-a", 10*time.Millisecond)
	if err != nil || !acquired {
		t.Fatalf("acquire short lease: acquired=%v err=%v", acquired, err)
	}
	time.Sleep(30 * time.Millisecond)
	acquired, err = store.TryAcquireLease(ctx, "wo-expiry", "owner-b", time.Minute)
	if err != nil || !acquired {
		t.Fatalf("steal expired lease: acquired=%v err=%v", acquired, err)
	}
}
