package api

import (
	"time"
)

// Status represents the lifecycle state of a work order.
type Status string

const (
	StatusOpen            Status = "OPEN"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusAssigned        Status = "ASSIGNED"
	StatusInProgress      Status = "IN_PROGRESS"
	StatusOnHold          Status = "ON_HOLD"
	StatusCompleted       Status = "COMPLETED"
	StatusCancelled       Status = "CANCELLED"
)

// Terminal reports whether s is a terminal status. Terminal work orders
// accept no further transitions, approvals, assignments, or escalations.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Priority orders work by urgency.
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// WorkType classifies why the work exists.
type WorkType string

const (
	WorkTypeCorrective WorkType = "CORRECTIVE"
	WorkTypePreventive WorkType = "PREVENTIVE"
	WorkTypeInspection WorkType = "INSPECTION"
	WorkTypeEmergency  WorkType = "EMERGENCY"
)

// Decision is an approver's verdict on a pending work order.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// Approval is one approver's recorded decision. The engine appends approvals
// in the order they were made; an approver appears at most once per order.
type Approval struct {
	ApproverID string
	Decision   Decision
	Note       string
	DecidedAt  time.Time
}

// SLAChannel names one of the two independent SLA deadlines.
type SLAChannel string

const (
	ChannelResponse SLAChannel = "response"
	ChannelResolve  SLAChannel = "resolve"
)

// Escalation records that a deadline channel crossed into (or stayed in)
// overdue territory during an escalation pass. Levels on a channel are
// strictly increasing: 1, 2, 3, ...
type Escalation struct {
	Channel SLAChannel
	Level   int
	At      time.Time
}

// SLA holds the deadline configuration applied to a work order and the
// progress recorded against it. At most one SLA is ever applied per order.
type SLA struct {
	Name        string
	RespondMins int
	ResolveMins int

	// AnchoredAt is the moment both deadline clocks started.
	AnchoredAt time.Time

	// FirstRespondedAt is set exactly once, by the first qualifying
	// response (RecordResponse or StartWork). Nil until then.
	FirstRespondedAt *time.Time

	// ResolvedAt is set when the order completes. Nil until then.
	ResolvedAt *time.Time

	Escalations []Escalation
}

// Level returns the highest escalation level recorded on the given channel,
// or 0 if the channel has never escalated.
func (s *SLA) Level(ch SLAChannel) int {
	max := 0
	for _, e := range s.Escalations {
		if e.Channel == ch && e.Level > max {
			max = e.Level
		}
	}
	return max
}

// SLAStatus reports where a work order stands against its deadlines at a
// given instant. Due-in values count whole minutes; negative means overdue.
type SLAStatus struct {
	Name                   string
	FirstResponseDueInMins int
	ResolveDueInMins       int
	Responded              bool
	Resolved               bool
}

// WorkOrder is the unit of maintenance work flowing through the engine.
type WorkOrder struct {
	ID          string
	Number      string
	Title       string
	Description string
	Status      Status
	Priority    Priority
	WorkType    WorkType

	// AssetID links the order to the equipment being serviced, if any.
	AssetID string

	CreatedBy  string
	AssigneeID string

	// RequiredSkills must all be held by a technician to be eligible
	// for auto-assignment.
	RequiredSkills []string
	Tags           []string

	// PendingApprovers is non-empty exactly while Status is
	// PENDING_APPROVAL; it shrinks as approvals arrive and is cleared on
	// any exit from that status.
	PendingApprovers []string

	// Approvals is the ordered decision log for the current (and only)
	// approval round.
	Approvals []Approval

	CompletionNotes string

	// SLA is nil until SetSLA or ApplySLAPreset is called.
	SLA *SLA

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of the work order. Engines and stores hand out
// clones so callers can never mutate shared state through a returned pointer.
func (w *WorkOrder) Clone() *WorkOrder {
	if w == nil {
		return nil
	}
	cp := *w
	cp.RequiredSkills = append([]string(nil), w.RequiredSkills...)
	cp.Tags = append([]string(nil), w.Tags...)
	cp.PendingApprovers = append([]string(nil), w.PendingApprovers...)
	cp.Approvals = append([]Approval(nil), w.Approvals...)
	if w.SLA != nil {
		sla := *w.SLA
		sla.Escalations = append([]Escalation(nil), w.SLA.Escalations...)
		if w.SLA.FirstRespondedAt != nil {
			t := *w.SLA.FirstRespondedAt
			sla.FirstRespondedAt = &t
		}
		if w.SLA.ResolvedAt != nil {
			t := *w.SLA.ResolvedAt
			sla.ResolvedAt = &t
		}
		cp.SLA = &sla
	}
	return &cp
}

// NewWorkOrder carries the caller-supplied fields for CreateWorkOrder.
// Zero values get defaults: Priority MEDIUM, WorkType CORRECTIVE, and a
// generated Number of the form "WO-20060102-150405".
type NewWorkOrder struct {
	Number         string
	Title          string
	Description    string
	Priority       Priority
	WorkType       WorkType
	AssetID        string
	CreatedBy      string
	RequiredSkills []string
	Tags           []string
}

// ListOptions controls how work orders are listed.
// Zero values mean "no filter" for that field.
type ListOptions struct {
	// Status, if non-empty, limits results to orders with the given status.
	Status Status

	// AssigneeID, if non-empty, limits results to orders assigned to the
	// given technician.
	AssigneeID string

	// Priority, if non-empty, limits results to orders with the given
	// priority.
	Priority Priority

	// ActiveOnly excludes terminal orders (REJECTED, COMPLETED, CANCELLED).
	ActiveOnly bool

	// WithSLA limits results to orders that have an SLA applied.
	WithSLA bool
}
