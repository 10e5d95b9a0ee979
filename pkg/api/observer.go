package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the work order engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay engine operations.
type Observer interface {
	// OnWorkOrderCreated is called once when a work order is stored for
	// the first time, in status OPEN.
	OnWorkOrderCreated(ctx context.Context, wo *WorkOrder)

	// OnStatusChanged is called after every committed status transition.
	OnStatusChanged(ctx context.Context, wo *WorkOrder, from, to Status)

	// OnApprovalRecorded is called after an approve or reject decision
	// lands in the decision log, before any resulting status change
	// callback.
	OnApprovalRecorded(ctx context.Context, wo *WorkOrder, approval Approval)

	// OnWorkOrderAssigned is called when auto-assignment picks a
	// technician and commits the assignment.
	OnWorkOrderAssigned(ctx context.Context, wo *WorkOrder, technicianID string)

	// OnSLAApplied is called when an SLA is attached to a work order.
	OnSLAApplied(ctx context.Context, wo *WorkOrder, sla *SLA)

	// OnSLAEscalated is called once per newly recorded escalation level.
	OnSLAEscalated(ctx context.Context, wo *WorkOrder, esc Escalation)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnWorkOrderCreated(ctx context.Context, wo *WorkOrder)                 {}
func (NoopObserver) OnStatusChanged(ctx context.Context, wo *WorkOrder, from, to Status)   {}
func (NoopObserver) OnApprovalRecorded(ctx context.Context, wo *WorkOrder, a Approval)     {}
func (NoopObserver) OnWorkOrderAssigned(ctx context.Context, wo *WorkOrder, techID string) {}
func (NoopObserver) OnSLAApplied(ctx context.Context, wo *WorkOrder, sla *SLA)             {}
func (NoopObserver) OnSLAEscalated(ctx context.Context, wo *WorkOrder, esc Escalation)     {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnWorkOrderCreated(ctx context.Context, wo *WorkOrder) {
	for _, o := range c.observers {
		o.OnWorkOrderCreated(ctx, wo)
	}
}

func (c *CompositeObserver) OnStatusChanged(ctx context.Context, wo *WorkOrder, from, to Status) {
	for _, o := range c.observers {
		o.OnStatusChanged(ctx, wo, from, to)
	}
}

func (c *CompositeObserver) OnApprovalRecorded(ctx context.Context, wo *WorkOrder, a Approval) {
	for _, o := range c.observers {
		o.OnApprovalRecorded(ctx, wo, a)
	}
}

func (c *CompositeObserver) OnWorkOrderAssigned(ctx context.Context, wo *WorkOrder, techID string) {
	for _, o := range c.observers {
		o.OnWorkOrderAssigned(ctx, wo, techID)
	}
}

func (c *CompositeObserver) OnSLAApplied(ctx context.Context, wo *WorkOrder, sla *SLA) {
	for _, o := range c.observers {
		o.OnSLAApplied(ctx, wo, sla)
	}
}

func (c *CompositeObserver) OnSLAEscalated(ctx context.Context, wo *WorkOrder, esc Escalation) {
	for _, o := range c.observers {
		o.OnSLAEscalated(ctx, wo, esc)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs work order lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnWorkOrderCreated(ctx context.Context, wo *WorkOrder) {
	o.Logger.InfoContext(ctx, "workorder_created",
		slog.String("work_order_id", wo.ID),
		slog.String("number", wo.Number),
		slog.String("priority", string(wo.Priority)),
	)
}

func (o *LoggingObserver) OnStatusChanged(ctx context.Context, wo *WorkOrder, from, to Status) {
	o.Logger.InfoContext(ctx, "status_changed",
		slog.String("work_order_id", wo.ID),
		slog.String("from", string(from)),
		slog.String("to", string(to)),
	)
}

func (o *LoggingObserver) OnApprovalRecorded(ctx context.Context, wo *WorkOrder, a Approval) {
	o.Logger.InfoContext(ctx, "approval_recorded",
		slog.String("work_order_id", wo.ID),
		slog.String("approver_id", a.ApproverID),
		slog.String("decision", string(a.Decision)),
	)
}

func (o *LoggingObserver) OnWorkOrderAssigned(ctx context.Context, wo *WorkOrder, techID string) {
	o.Logger.InfoContext(ctx, "workorder_assigned",
		slog.String("work_order_id", wo.ID),
		slog.String("technician_id", techID),
	)
}

func (o *LoggingObserver) OnSLAApplied(ctx context.Context, wo *WorkOrder, sla *SLA) {
	o.Logger.InfoContext(ctx, "sla_applied",
		slog.String("work_order_id", wo.ID),
		slog.String("sla", sla.Name),
		slog.Int("respond_mins", sla.RespondMins),
		slog.Int("resolve_mins", sla.ResolveMins),
	)
}

func (o *LoggingObserver) OnSLAEscalated(ctx context.Context, wo *WorkOrder, esc Escalation) {
	o.Logger.WarnContext(ctx, "sla_escalated",
		slog.String("work_order_id", wo.ID),
		slog.String("channel", string(esc.Channel)),
		slog.Int("level", esc.Level),
	)
}

// BasicMetrics collects simple counters over engine activity.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	created       atomic.Int64
	transitions   atomic.Int64
	approvals     atomic.Int64
	rejections    atomic.Int64
	assignments   atomic.Int64
	slasApplied   atomic.Int64
	escalations   atomic.Int64
	completions   atomic.Int64
	cancellations atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	Created       int64
	Transitions   int64
	Approvals     int64
	Rejections    int64
	Assignments   int64
	SLAsApplied   int64
	Escalations   int64
	Completions   int64
	Cancellations int64
}

func (m *BasicMetrics) OnWorkOrderCreated(ctx context.Context, wo *WorkOrder) {
	m.created.Add(1)
}

func (m *BasicMetrics) OnStatusChanged(ctx context.Context, wo *WorkOrder, from, to Status) {
	m.transitions.Add(1)
	switch to {
	case StatusCompleted:
		m.completions.Add(1)
	case StatusCancelled:
		m.cancellations.Add(1)
	}
}

func (m *BasicMetrics) OnApprovalRecorded(ctx context.Context, wo *WorkOrder, a Approval) {
	switch a.Decision {
	case DecisionApprove:
		m.approvals.Add(1)
	case DecisionReject:
		m.rejections.Add(1)
	}
}

func (m *BasicMetrics) OnWorkOrderAssigned(ctx context.Context, wo *WorkOrder, techID string) {
	m.assignments.Add(1)
}

func (m *BasicMetrics) OnSLAApplied(ctx context.Context, wo *WorkOrder, sla *SLA) {
	m.slasApplied.Add(1)
}

func (m *BasicMetrics) OnSLAEscalated(ctx context.Context, wo *WorkOrder, esc Escalation) {
	m.escalations.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	return BasicMetricsSnapshot{
		Created:       m.created.Load(),
		Transitions:   m.transitions.Load(),
		Approvals:     m.approvals.Load(),
		Rejections:    m.rejections.Load(),
		Assignments:   m.assignments.Load(),
		SLAsApplied:   m.slasApplied.Load(),
		Escalations:   m.escalations.Load(),
		Completions:   m.completions.Load(),
		Cancellations: m.cancellations.Load(),
	}
}
