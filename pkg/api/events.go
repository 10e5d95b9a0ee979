package api

import "time"

// EventType identifies a work order history event.
type EventType string

const (
	EventWorkOrderCreated   EventType = "workorder.created"
	EventSubmittedForReview EventType = "workorder.submitted_for_approval"
	EventApprovalRecorded   EventType = "workorder.approval_recorded"
	EventWorkOrderApproved  EventType = "workorder.approved"
	EventWorkOrderRejected  EventType = "workorder.rejected"
	EventWorkOrderAssigned  EventType = "workorder.assigned"
	EventWorkStarted        EventType = "workorder.started"
	EventWorkOnHold         EventType = "workorder.on_hold"
	EventWorkResumed        EventType = "workorder.resumed"
	EventWorkCompleted      EventType = "workorder.completed"
	EventWorkOrderCancelled EventType = "workorder.cancelled"

	EventSLAApplied       EventType = "sla.applied"
	EventResponseRecorded EventType = "sla.response_recorded"
	EventSLAEscalated     EventType = "sla.escalated"
)

// WorkOrderEvent is a minimal append-only history record for audit/debugging.
// It is intentionally small and stable; richer history can be layered later.
type WorkOrderEvent struct {
	WorkOrderID string
	At          time.Time
	Type        EventType

	// Actor is who drove the event, when known (approver, technician,
	// caller-supplied identity).
	Actor string

	// Small, human-oriented details (e.g. approval note, SLA name).
	// Keep this low-volume: do NOT dump large payloads here.
	Detail string

	// Channel and Level are set only on sla.escalated events.
	Channel SLAChannel
	Level   int
}
