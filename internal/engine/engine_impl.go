package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/TheGringo-ai/wrench/internal/persistence"
	"github.com/TheGringo-ai/wrench/internal/sla"
	"github.com/TheGringo-ai/wrench/pkg/api"
)

// engineImpl is a synchronous, in-process engine implementation. Mutations
// on the same work order are serialized through a keyed lock; each operation
// reads the record, applies the full change in memory, and commits it with a
// single store write, so a failed operation leaves the record untouched.
type engineImpl struct {
	store     persistence.WorkOrderStore
	events    persistence.EventStore
	directory api.TechnicianDirectory
	observer  api.Observer
	now       func() time.Time

	locks   *keyedLocks
	rules   *ruleRegistry
	presets []api.SLAPreset

	defaultApprovers []string
	maxActive        int
}

// Config describes how to construct an engineImpl.
// Only used inside this package; external callers use the helper functions.
type Config struct {
	Persistence persistence.Persistence
	Directory   api.TechnicianDirectory
	Options     api.EngineOptions
}

// NewEngine creates an Engine from the given configuration. Defaults: Noop
// observer, Noop event store, time.Now clock, DefaultMaxActive capacity cap.
func NewEngine(cfg Config) (api.Engine, error) {
	if cfg.Persistence.WorkOrders == nil {
		return nil, errors.New("work order store is required")
	}

	obs := cfg.Options.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	events := cfg.Persistence.Events
	if events == nil {
		events = persistence.NoopEventStore{}
	}
	now := cfg.Options.Now
	if now == nil {
		now = time.Now
	}
	maxActive := cfg.Options.MaxActive
	if maxActive <= 0 || maxActive > api.DefaultMaxActive {
		maxActive = api.DefaultMaxActive
	}

	rules, err := newRuleRegistry(cfg.Options.Rules)
	if err != nil {
		return nil, err
	}

	return &engineImpl{
		store:            cfg.Persistence.WorkOrders,
		events:           events,
		directory:        cfg.Directory,
		observer:         obs,
		now:              now,
		locks:            newKeyedLocks(),
		rules:            rules,
		presets:          append([]api.SLAPreset(nil), cfg.Options.Presets...),
		defaultApprovers: append([]string(nil), cfg.Options.DefaultApprovers...),
		maxActive:        maxActive,
	}, nil
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine(dir api.TechnicianDirectory) api.Engine {
	return NewInMemoryEngineWithOptions(dir, api.EngineOptions{})
}

// NewInMemoryEngineWithOptions returns an in-memory Engine with the given
// options.
func NewInMemoryEngineWithOptions(dir api.TechnicianDirectory, opts api.EngineOptions) api.Engine {
	eng, err := NewEngine(Config{
		Persistence: persistence.Persistence{
			WorkOrders: persistence.NewInMemoryStore(),
			Events:     persistence.NewInMemoryEventStore(),
		},
		Directory: dir,
		Options:   opts,
	})
	if err != nil {
		// Only reachable through an invalid seed rule.
		panic(err)
	}
	return eng
}

// NewSQLiteEngine returns an Engine that persists work orders and the event
// trail in a SQLite database. Assignment rules and SLA presets stay
// in-memory: they are configuration, re-seeded on startup.
func NewSQLiteEngine(db *sql.DB, dir api.TechnicianDirectory) (api.Engine, error) {
	return NewSQLiteEngineWithOptions(db, dir, api.EngineOptions{})
}

func NewSQLiteEngineWithOptions(db *sql.DB, dir api.TechnicianDirectory, opts api.EngineOptions) (api.Engine, error) {
	store, err := persistence.NewSQLiteWorkOrderStore(db)
	if err != nil {
		return nil, err
	}
	events, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(Config{
		Persistence: persistence.Persistence{WorkOrders: store, Events: events},
		Directory:   dir,
		Options:     opts,
	})
}

// NewPostgresEngine returns an Engine that persists work orders in
// PostgreSQL. The event trail stays process-local for this backend.
func NewPostgresEngine(db *sql.DB, dir api.TechnicianDirectory) (api.Engine, error) {
	return NewPostgresEngineWithOptions(db, dir, api.EngineOptions{})
}

func NewPostgresEngineWithOptions(db *sql.DB, dir api.TechnicianDirectory, opts api.EngineOptions) (api.Engine, error) {
	store, err := persistence.NewPostgresWorkOrderStore(db)
	if err != nil {
		return nil, err
	}
	return NewEngine(Config{
		Persistence: persistence.Persistence{
			WorkOrders: store,
			Events:     persistence.NewInMemoryEventStore(),
		},
		Directory: dir,
		Options:   opts,
	})
}

// NewRedisEngine returns an Engine that persists work orders in Redis.
// The event trail stays process-local for this backend.
func NewRedisEngine(client *redis.Client, dir api.TechnicianDirectory) api.Engine {
	return NewRedisEngineWithOptions(client, dir, api.EngineOptions{})
}

func NewRedisEngineWithOptions(client *redis.Client, dir api.TechnicianDirectory, opts api.EngineOptions) api.Engine {
	eng, err := NewEngine(Config{
		Persistence: persistence.Persistence{
			WorkOrders: persistence.NewRedisWorkOrderStore(client, "wrench:"),
			Events:     persistence.NewInMemoryEventStore(),
		},
		Directory: dir,
		Options:   opts,
	})
	if err != nil {
		panic(err)
	}
	return eng
}

// NewMongoEngine returns an Engine that persists work orders in MongoDB.
// The event trail stays process-local for this backend.
func NewMongoEngine(client *mongo.Client, dir api.TechnicianDirectory) api.Engine {
	return NewMongoEngineWithOptions(client, dir, api.EngineOptions{})
}

func NewMongoEngineWithOptions(client *mongo.Client, dir api.TechnicianDirectory, opts api.EngineOptions) api.Engine {
	eng, err := NewEngine(Config{
		Persistence: persistence.Persistence{
			WorkOrders: persistence.NewMongoWorkOrderStore(client, "wrench", "workorders"),
			Events:     persistence.NewInMemoryEventStore(),
		},
		Directory: dir,
		Options:   opts,
	})
	if err != nil {
		panic(err)
	}
	return eng
}

var _ api.Engine = (*engineImpl)(nil)

var validPriorities = map[api.Priority]bool{
	api.PriorityLow:      true,
	api.PriorityMedium:   true,
	api.PriorityHigh:     true,
	api.PriorityCritical: true,
}

var validWorkTypes = map[api.WorkType]bool{
	api.WorkTypeCorrective: true,
	api.WorkTypePreventive: true,
	api.WorkTypeInspection: true,
	api.WorkTypeEmergency:  true,
}

func (e *engineImpl) CreateWorkOrder(ctx context.Context, nw api.NewWorkOrder) (*api.WorkOrder, error) {
	if nw.Title == "" {
		return nil, errors.New("work order title is required")
	}
	if nw.Priority == "" {
		nw.Priority = api.PriorityMedium
	}
	if !validPriorities[nw.Priority] {
		return nil, fmt.Errorf("unknown priority: %s", nw.Priority)
	}
	if nw.WorkType == "" {
		nw.WorkType = api.WorkTypeCorrective
	}
	if !validWorkTypes[nw.WorkType] {
		return nil, fmt.Errorf("unknown work type: %s", nw.WorkType)
	}

	now := e.now()
	number := nw.Number
	if number == "" {
		number = "WO-" + now.Format("20060102-150405")
	}

	wo := &api.WorkOrder{
		ID:             uuid.NewString(),
		Number:         number,
		Title:          nw.Title,
		Description:    nw.Description,
		Status:         api.StatusOpen,
		Priority:       nw.Priority,
		WorkType:       nw.WorkType,
		AssetID:        nw.AssetID,
		CreatedBy:      nw.CreatedBy,
		RequiredSkills: append([]string(nil), nw.RequiredSkills...),
		Tags:           append([]string(nil), nw.Tags...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := e.store.SaveWorkOrder(wo); err != nil {
		return nil, err
	}

	e.observer.OnWorkOrderCreated(ctx, wo)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          now,
		Type:        api.EventWorkOrderCreated,
		Actor:       nw.CreatedBy,
		Detail:      wo.Number,
	})
	return wo.Clone(), nil
}

func (e *engineImpl) GetWorkOrder(ctx context.Context, id string) (*api.WorkOrder, error) {
	return e.load(id)
}

func (e *engineImpl) ListWorkOrders(ctx context.Context, opts api.ListOptions) ([]*api.WorkOrder, error) {
	out, err := e.store.ListWorkOrders(persistence.Filter{
		Status:     opts.Status,
		AssigneeID: opts.AssigneeID,
		Priority:   opts.Priority,
		ActiveOnly: opts.ActiveOnly,
		WithSLA:    opts.WithSLA,
	})
	if err != nil {
		return nil, err
	}

	// Stores return records in backend order; present a stable one.
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (e *engineImpl) SubmitForApproval(ctx context.Context, id string, approverIDs []string) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status != api.StatusOpen {
		return nil, fmt.Errorf("%w: cannot submit %s work order for approval", api.ErrInvalidTransition, wo.Status)
	}

	approvers := dedupe(approverIDs)
	if len(approvers) == 0 {
		approvers = dedupe(e.defaultApprovers)
	}
	if len(approvers) == 0 {
		return nil, fmt.Errorf("%w: work order %s", api.ErrNoApprovers, id)
	}

	from := wo.Status
	wo.Status = api.StatusPendingApproval
	wo.PendingApprovers = approvers
	wo.Approvals = nil
	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.observer.OnStatusChanged(ctx, wo, from, wo.Status)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          wo.UpdatedAt,
		Type:        api.EventSubmittedForReview,
		Detail:      fmt.Sprintf("%d approver(s)", len(approvers)),
	})
	return wo.Clone(), nil
}

func (e *engineImpl) Approve(ctx context.Context, id, approverID, note string) (*api.WorkOrder, error) {
	return e.decide(ctx, id, approverID, note, api.DecisionApprove)
}

func (e *engineImpl) Reject(ctx context.Context, id, approverID, note string) (*api.WorkOrder, error) {
	return e.decide(ctx, id, approverID, note, api.DecisionReject)
}

// decide records one approver's verdict and applies the approval policy:
// approval is unanimous, a single rejection is absorbing.
func (e *engineImpl) decide(ctx context.Context, id, approverID, note string, decision api.Decision) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status != api.StatusPendingApproval {
		return nil, fmt.Errorf("%w: cannot decide on %s work order", api.ErrInvalidTransition, wo.Status)
	}
	for _, a := range wo.Approvals {
		if a.ApproverID == approverID {
			return nil, fmt.Errorf("%w: %s", api.ErrAlreadyActed, approverID)
		}
	}
	idx := -1
	for i, p := range wo.PendingApprovers {
		if p == approverID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", api.ErrUnauthorizedApprover, approverID)
	}

	now := e.now()
	approval := api.Approval{
		ApproverID: approverID,
		Decision:   decision,
		Note:       note,
		DecidedAt:  now,
	}
	wo.Approvals = append(wo.Approvals, approval)
	wo.PendingApprovers = append(wo.PendingApprovers[:idx], wo.PendingApprovers[idx+1:]...)

	from := wo.Status
	switch {
	case decision == api.DecisionReject:
		// One rejection decides the round; outstanding approvers can no
		// longer act.
		wo.Status = api.StatusRejected
		wo.PendingApprovers = nil
	case len(wo.PendingApprovers) == 0:
		wo.Status = api.StatusApproved
	}

	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.observer.OnApprovalRecorded(ctx, wo, approval)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          now,
		Type:        api.EventApprovalRecorded,
		Actor:       approverID,
		Detail:      string(decision),
	})

	if wo.Status != from {
		e.observer.OnStatusChanged(ctx, wo, from, wo.Status)
		typ := api.EventWorkOrderApproved
		if wo.Status == api.StatusRejected {
			typ = api.EventWorkOrderRejected
		}
		e.appendEvent(ctx, api.WorkOrderEvent{
			WorkOrderID: wo.ID,
			At:          now,
			Type:        typ,
			Actor:       approverID,
			Detail:      note,
		})
	}
	return wo.Clone(), nil
}

func (e *engineImpl) Cancel(ctx context.Context, id, actor, reason string) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot cancel %s work order", api.ErrInvalidTransition, wo.Status)
	}

	from := wo.Status
	wo.Status = api.StatusCancelled
	wo.PendingApprovers = nil
	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.releaseAssignee(ctx, wo, from)
	e.observer.OnStatusChanged(ctx, wo, from, wo.Status)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          wo.UpdatedAt,
		Type:        api.EventWorkOrderCancelled,
		Actor:       actor,
		Detail:      reason,
	})
	return wo.Clone(), nil
}

func (e *engineImpl) AutoAssign(ctx context.Context, id string) (*api.WorkOrder, error) {
	if e.directory == nil {
		return nil, errors.New("no technician directory configured")
	}

	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status != api.StatusOpen && wo.Status != api.StatusApproved {
		return nil, fmt.Errorf("%w: cannot assign %s work order", api.ErrInvalidTransition, wo.Status)
	}
	if wo.AssigneeID != "" {
		return nil, fmt.Errorf("%w: work order already assigned to %s", api.ErrInvalidTransition, wo.AssigneeID)
	}

	techs, err := e.directory.ListTechnicians(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing technicians: %w", err)
	}

	rule := e.rules.Match(wo.Priority)
	limit := e.maxActive
	if rule != nil && rule.MaxActive > 0 && rule.MaxActive < limit {
		limit = rule.MaxActive
	}

	var cands []*api.Technician
	for _, t := range techs {
		if !t.HasSkills(wo.RequiredSkills) {
			continue
		}
		if rule != nil && !hasAnySkill(t, rule.SkillsAny) {
			continue
		}
		if t.ActiveCount >= limit {
			continue
		}
		cands = append(cands, t)
	}
	if len(cands) == 0 {
		return nil, fmt.Errorf("%w: work order %s", api.ErrNoEligibleTechnician, id)
	}

	// Walk the ranking and take the first reservation that sticks. A lost
	// race against a concurrent assignment falls through to the next
	// candidate instead of failing the operation.
	var chosen *api.Technician
	for _, t := range rankCandidates(cands, wo.RequiredSkills) {
		ok, err := e.directory.Reserve(ctx, t.ID, limit)
		if err != nil {
			return nil, fmt.Errorf("reserving technician %s: %w", t.ID, err)
		}
		if ok {
			chosen = t
			break
		}
	}
	if chosen == nil {
		return nil, fmt.Errorf("%w: work order %s", api.ErrNoEligibleTechnician, id)
	}

	from := wo.Status
	wo.Status = api.StatusAssigned
	wo.AssigneeID = chosen.ID
	if err := e.commit(wo); err != nil {
		// Hand the reserved slot back so the counter cannot drift.
		_ = e.directory.Release(ctx, chosen.ID)
		return nil, err
	}

	e.observer.OnStatusChanged(ctx, wo, from, wo.Status)
	e.observer.OnWorkOrderAssigned(ctx, wo, chosen.ID)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          wo.UpdatedAt,
		Type:        api.EventWorkOrderAssigned,
		Actor:       chosen.ID,
	})
	return wo.Clone(), nil
}

func (e *engineImpl) StartWork(ctx context.Context, id, technicianID string) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status != api.StatusAssigned {
		return nil, fmt.Errorf("%w: cannot start %s work order", api.ErrInvalidTransition, wo.Status)
	}
	if technicianID != "" && technicianID != wo.AssigneeID {
		return nil, fmt.Errorf("technician %s is not assigned to work order %s", technicianID, id)
	}

	now := e.now()
	from := wo.Status
	wo.Status = api.StatusInProgress

	// Starting work is the first qualifying response.
	responded := false
	if wo.SLA != nil && wo.SLA.FirstRespondedAt == nil {
		t := now
		wo.SLA.FirstRespondedAt = &t
		responded = true
	}

	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.observer.OnStatusChanged(ctx, wo, from, wo.Status)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          now,
		Type:        api.EventWorkStarted,
		Actor:       technicianID,
	})
	if responded {
		e.appendEvent(ctx, api.WorkOrderEvent{
			WorkOrderID: wo.ID,
			At:          now,
			Type:        api.EventResponseRecorded,
			Actor:       technicianID,
		})
	}
	return wo.Clone(), nil
}

func (e *engineImpl) HoldWork(ctx context.Context, id, actor, reason string) (*api.WorkOrder, error) {
	return e.reportProgress(ctx, id, actor, reason, api.StatusOnHold, api.EventWorkOnHold)
}

func (e *engineImpl) ResumeWork(ctx context.Context, id, actor string) (*api.WorkOrder, error) {
	return e.reportProgress(ctx, id, actor, "", api.StatusInProgress, api.EventWorkResumed)
}

// reportProgress handles the thin pass-through transitions between
// IN_PROGRESS and ON_HOLD, going through the same table as everything else.
func (e *engineImpl) reportProgress(ctx context.Context, id, actor, detail string, to api.Status, typ api.EventType) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if !canTransition(wo.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", api.ErrInvalidTransition, wo.Status, to)
	}

	from := wo.Status
	wo.Status = to
	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.observer.OnStatusChanged(ctx, wo, from, to)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          wo.UpdatedAt,
		Type:        typ,
		Actor:       actor,
		Detail:      detail,
	})
	return wo.Clone(), nil
}

func (e *engineImpl) CompleteWork(ctx context.Context, id, actor, notes string) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status != api.StatusInProgress {
		return nil, fmt.Errorf("%w: cannot complete %s work order", api.ErrInvalidTransition, wo.Status)
	}

	now := e.now()
	from := wo.Status
	wo.Status = api.StatusCompleted
	wo.CompletionNotes = notes
	if wo.SLA != nil && wo.SLA.ResolvedAt == nil {
		t := now
		wo.SLA.ResolvedAt = &t
	}

	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.releaseAssignee(ctx, wo, from)
	e.observer.OnStatusChanged(ctx, wo, from, wo.Status)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          now,
		Type:        api.EventWorkCompleted,
		Actor:       actor,
		Detail:      notes,
	})
	return wo.Clone(), nil
}

func (e *engineImpl) SetSLA(ctx context.Context, id, name string, respondMins, resolveMins int) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	return e.applySLA(ctx, id, name, respondMins, resolveMins)
}

func (e *engineImpl) ApplySLAPreset(ctx context.Context, id, presetName string) (*api.WorkOrder, error) {
	var preset *api.SLAPreset
	for i := range e.presets {
		if e.presets[i].Name == presetName {
			preset = &e.presets[i]
			break
		}
	}
	if preset == nil {
		return nil, fmt.Errorf("unknown sla preset: %s", presetName)
	}

	unlock := e.locks.lock(id)
	defer unlock()

	return e.applySLA(ctx, id, preset.Name, preset.RespondMins, preset.ResolveMins)
}

// applySLA is the shared SetSLA/ApplySLAPreset path. Caller holds the lock.
func (e *engineImpl) applySLA(ctx context.Context, id, name string, respondMins, resolveMins int) (*api.WorkOrder, error) {
	if respondMins <= 0 || resolveMins <= 0 {
		return nil, fmt.Errorf("%w: respond=%d resolve=%d (minutes must be positive)", api.ErrInvalidSLAConfig, respondMins, resolveMins)
	}

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot apply sla to %s work order", api.ErrInvalidTransition, wo.Status)
	}
	if wo.SLA != nil {
		return nil, fmt.Errorf("%w: work order %s already has sla %q", api.ErrDuplicateSLA, id, wo.SLA.Name)
	}

	now := e.now()
	wo.SLA = &api.SLA{
		Name:        name,
		RespondMins: respondMins,
		ResolveMins: resolveMins,
		AnchoredAt:  now,
	}
	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.observer.OnSLAApplied(ctx, wo, wo.SLA)
	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          now,
		Type:        api.EventSLAApplied,
		Detail:      name,
	})
	return wo.Clone(), nil
}

func (e *engineImpl) RecordResponse(ctx context.Context, id, actor string) (*api.WorkOrder, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status.Terminal() {
		return nil, fmt.Errorf("%w: cannot record response on %s work order", api.ErrInvalidTransition, wo.Status)
	}
	if wo.SLA == nil {
		return nil, fmt.Errorf("%w: work order %s", api.ErrNoSLA, id)
	}
	if wo.SLA.FirstRespondedAt != nil {
		// Already responded; the first stamp stands.
		return wo.Clone(), nil
	}

	now := e.now()
	t := now
	wo.SLA.FirstRespondedAt = &t
	if err := e.commit(wo); err != nil {
		return nil, err
	}

	e.appendEvent(ctx, api.WorkOrderEvent{
		WorkOrderID: wo.ID,
		At:          now,
		Type:        api.EventResponseRecorded,
		Actor:       actor,
	})
	return wo.Clone(), nil
}

// SLAStatus is a pure read: no lock taken, nothing mutated.
func (e *engineImpl) SLAStatus(ctx context.Context, id string) (*api.SLAStatus, error) {
	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.SLA == nil {
		return nil, fmt.Errorf("%w: work order %s", api.ErrNoSLA, id)
	}
	return sla.Status(wo.SLA, e.now()), nil
}

func (e *engineImpl) EscalateOverdue(ctx context.Context, id string) ([]api.Escalation, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	wo, err := e.load(id)
	if err != nil {
		return nil, err
	}
	if wo.Status.Terminal() {
		// Terminal orders never escalate, even retroactively.
		return nil, nil
	}
	if wo.SLA == nil {
		return nil, fmt.Errorf("%w: work order %s", api.ErrNoSLA, id)
	}

	now := e.now()
	var recorded []api.Escalation
	for _, ch := range sla.Overdue(wo.SLA, now) {
		// At most one new level per channel per pass keeps the
		// escalation cadence observable.
		esc := api.Escalation{
			Channel: ch,
			Level:   wo.SLA.Level(ch) + 1,
			At:      now,
		}
		wo.SLA.Escalations = append(wo.SLA.Escalations, esc)
		recorded = append(recorded, esc)
	}
	if len(recorded) == 0 {
		return nil, nil
	}

	if err := e.commit(wo); err != nil {
		return nil, err
	}

	for _, esc := range recorded {
		e.observer.OnSLAEscalated(ctx, wo, esc)
		e.appendEvent(ctx, api.WorkOrderEvent{
			WorkOrderID: wo.ID,
			At:          now,
			Type:        api.EventSLAEscalated,
			Channel:     esc.Channel,
			Level:       esc.Level,
		})
	}
	return recorded, nil
}

func (e *engineImpl) ListEvents(ctx context.Context, id string) ([]api.WorkOrderEvent, error) {
	return e.events.ListEvents(ctx, id)
}

// appendEvent records an audit event after the transition has committed.
// Best-effort: a trail write failure must not undo the committed change.
func (e *engineImpl) appendEvent(ctx context.Context, ev api.WorkOrderEvent) {
	_ = e.events.AppendEvent(ctx, ev)
}

func (e *engineImpl) PutAssignmentRule(rule api.AssignmentRule) error {
	return e.rules.Put(rule)
}

func (e *engineImpl) ListAssignmentRules() []api.AssignmentRule {
	return e.rules.List()
}

func (e *engineImpl) ListSLAPresets() []api.SLAPreset {
	return append([]api.SLAPreset(nil), e.presets...)
}

// load fetches a work order, mapping the store sentinel to api.ErrNotFound.
func (e *engineImpl) load(id string) (*api.WorkOrder, error) {
	wo, err := e.store.GetWorkOrder(id)
	if err != nil {
		if errors.Is(err, persistence.ErrWorkOrderNotFound) {
			return nil, fmt.Errorf("%w: %s", api.ErrNotFound, id)
		}
		return nil, err
	}
	return wo, nil
}

// commit stamps UpdatedAt and writes the fully mutated record back in one
// store update.
func (e *engineImpl) commit(wo *api.WorkOrder) error {
	wo.UpdatedAt = e.now()
	return e.store.UpdateWorkOrder(wo)
}

// releaseAssignee hands the assignee's capacity slot back when a work order
// leaves the active-assignment states. Best-effort: a directory error must
// not undo an already committed transition.
func (e *engineImpl) releaseAssignee(ctx context.Context, wo *api.WorkOrder, from api.Status) {
	if e.directory == nil || wo.AssigneeID == "" {
		return
	}
	switch from {
	case api.StatusAssigned, api.StatusInProgress, api.StatusOnHold:
		_ = e.directory.Release(ctx, wo.AssigneeID)
	}
}

func hasAnySkill(t *api.Technician, any []string) bool {
	if len(any) == 0 {
		return true
	}
	for _, w := range any {
		for _, s := range t.Skills {
			if s == w {
				return true
			}
		}
	}
	return false
}

// dedupe collapses duplicate IDs preserving first-seen order.
func dedupe(ids []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
