package wrench

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/TheGringo-ai/wrench/internal/engine"
	"github.com/TheGringo-ai/wrench/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine              = api.Engine
	WorkOrder           = api.WorkOrder
	NewWorkOrderRequest = api.NewWorkOrder
	ListOptions         = api.ListOptions
	Status              = api.Status
	Priority            = api.Priority
	WorkType            = api.WorkType
	Decision            = api.Decision
	Approval            = api.Approval
	SLA                 = api.SLA
	SLAStatus           = api.SLAStatus
	SLAChannel          = api.SLAChannel
	SLAPreset           = api.SLAPreset
	Escalation          = api.Escalation
	AssignmentRule      = api.AssignmentRule
	Technician          = api.Technician
	TechnicianDirectory = api.TechnicianDirectory
	WorkOrderEvent      = api.WorkOrderEvent
	EventType           = api.EventType
	EngineOptions       = api.EngineOptions

	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status values for convenience.

const (
	StatusOpen            = api.StatusOpen
	StatusPendingApproval = api.StatusPendingApproval
	StatusApproved        = api.StatusApproved
	StatusRejected        = api.StatusRejected
	StatusAssigned        = api.StatusAssigned
	StatusInProgress      = api.StatusInProgress
	StatusOnHold          = api.StatusOnHold
	StatusCompleted       = api.StatusCompleted
	StatusCancelled       = api.StatusCancelled

	PriorityLow      = api.PriorityLow
	PriorityMedium   = api.PriorityMedium
	PriorityHigh     = api.PriorityHigh
	PriorityCritical = api.PriorityCritical

	ChannelResponse = api.ChannelResponse
	ChannelResolve  = api.ChannelResolve

	DefaultMaxActive = api.DefaultMaxActive

	EventWorkOrderCreated   = api.EventWorkOrderCreated
	EventSubmittedForReview = api.EventSubmittedForReview
	EventApprovalRecorded   = api.EventApprovalRecorded
	EventWorkOrderApproved  = api.EventWorkOrderApproved
	EventWorkOrderRejected  = api.EventWorkOrderRejected
	EventWorkOrderAssigned  = api.EventWorkOrderAssigned
	EventWorkStarted        = api.EventWorkStarted
	EventWorkOnHold         = api.EventWorkOnHold
	EventWorkResumed        = api.EventWorkResumed
	EventWorkCompleted      = api.EventWorkCompleted
	EventWorkOrderCancelled = api.EventWorkOrderCancelled
	EventSLAApplied         = api.EventSLAApplied
	EventResponseRecorded   = api.EventResponseRecorded
	EventSLAEscalated       = api.EventSLAEscalated
)

// Re-export the error taxonomy; match with errors.Is.

var (
	ErrNotFound             = api.ErrNotFound
	ErrInvalidTransition    = api.ErrInvalidTransition
	ErrNoApprovers          = api.ErrNoApprovers
	ErrUnauthorizedApprover = api.ErrUnauthorizedApprover
	ErrAlreadyActed         = api.ErrAlreadyActed
	ErrNoEligibleTechnician = api.ErrNoEligibleTechnician
	ErrDuplicateSLA         = api.ErrDuplicateSLA
	ErrInvalidSLAConfig     = api.ErrInvalidSLAConfig
	ErrNoSLA                = api.ErrNoSLA
	ErrTechnicianNotFound   = api.ErrTechnicianNotFound
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine(dir TechnicianDirectory) Engine {
	return engine.NewInMemoryEngine(dir)
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(dir TechnicianDirectory, obs Observer) Engine {
	return engine.NewInMemoryEngineWithOptions(dir, EngineOptions{Observer: obs})
}

// NewInMemoryEngineWithOptions returns an in-memory Engine with the given options.
func NewInMemoryEngineWithOptions(dir TechnicianDirectory, opts EngineOptions) Engine {
	return engine.NewInMemoryEngineWithOptions(dir, opts)
}

// NewSQLiteEngine returns an Engine that persists work orders and the event
// trail in a SQLite database.
func NewSQLiteEngine(db *sql.DB, dir TechnicianDirectory) (Engine, error) {
	return engine.NewSQLiteEngine(db, dir)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, dir TechnicianDirectory, obs Observer) (Engine, error) {
	return engine.NewSQLiteEngineWithOptions(db, dir, EngineOptions{Observer: obs})
}

// NewSQLiteEngineWithOptions returns a SQLite-backed Engine with the given options.
func NewSQLiteEngineWithOptions(db *sql.DB, dir TechnicianDirectory, opts EngineOptions) (Engine, error) {
	return engine.NewSQLiteEngineWithOptions(db, dir, opts)
}

// NewPostgresEngine returns an Engine that persists work orders in PostgreSQL.
func NewPostgresEngine(db *sql.DB, dir TechnicianDirectory) (Engine, error) {
	return engine.NewPostgresEngine(db, dir)
}

// NewPostgresEngineWithObserver returns a Postgres-backed Engine with the given Observer.
func NewPostgresEngineWithObserver(db *sql.DB, dir TechnicianDirectory, obs Observer) (Engine, error) {
	return engine.NewPostgresEngineWithOptions(db, dir, EngineOptions{Observer: obs})
}

// NewPostgresEngineWithOptions returns a Postgres-backed Engine with the given options.
func NewPostgresEngineWithOptions(db *sql.DB, dir TechnicianDirectory, opts EngineOptions) (Engine, error) {
	return engine.NewPostgresEngineWithOptions(db, dir, opts)
}

// NewRedisEngine returns an Engine that persists work orders in Redis.
func NewRedisEngine(client *redis.Client, dir TechnicianDirectory) Engine {
	return engine.NewRedisEngine(client, dir)
}

// NewRedisEngineWithObserver returns a Redis-backed Engine with the given Observer.
func NewRedisEngineWithObserver(client *redis.Client, dir TechnicianDirectory, obs Observer) Engine {
	return engine.NewRedisEngineWithOptions(client, dir, EngineOptions{Observer: obs})
}

// NewRedisEngineWithOptions returns a Redis-backed Engine with the given options.
func NewRedisEngineWithOptions(client *redis.Client, dir TechnicianDirectory, opts EngineOptions) Engine {
	return engine.NewRedisEngineWithOptions(client, dir, opts)
}

// NewMongoEngine returns an Engine that persists work orders in MongoDB.
func NewMongoEngine(client *mongo.Client, dir TechnicianDirectory) Engine {
	return engine.NewMongoEngine(client, dir)
}

// NewMongoEngineWithObserver returns a Mongo-backed Engine with the given Observer.
func NewMongoEngineWithObserver(client *mongo.Client, dir TechnicianDirectory, obs Observer) Engine {
	return engine.NewMongoEngineWithOptions(client, dir, EngineOptions{Observer: obs})
}

// NewMongoEngineWithOptions returns a Mongo-backed Engine with the given options.
func NewMongoEngineWithOptions(client *mongo.Client, dir TechnicianDirectory, opts EngineOptions) Engine {
	return engine.NewMongoEngineWithOptions(client, dir, opts)
}

// Convenience helpers that just forward to the underlying Engine.

// CreateWorkOrder stores a new work order in status OPEN.
func CreateWorkOrder(ctx context.Context, eng Engine, nw NewWorkOrderRequest) (*WorkOrder, error) {
	return eng.CreateWorkOrder(ctx, nw)
}

// GetWorkOrder fetches a work order by ID.
func GetWorkOrder(ctx context.Context, eng Engine, id string) (*WorkOrder, error) {
	return eng.GetWorkOrder(ctx, id)
}

// SubmitForApproval moves an OPEN work order to PENDING_APPROVAL.
func SubmitForApproval(ctx context.Context, eng Engine, id string, approverIDs []string) (*WorkOrder, error) {
	return eng.SubmitForApproval(ctx, id, approverIDs)
}

// Approve records an APPROVE decision by the given approver.
func Approve(ctx context.Context, eng Engine, id, approverID, note string) (*WorkOrder, error) {
	return eng.Approve(ctx, id, approverID, note)
}

// Reject records a REJECT decision by the given approver.
func Reject(ctx context.Context, eng Engine, id, approverID, note string) (*WorkOrder, error) {
	return eng.Reject(ctx, id, approverID, note)
}

// Cancel moves a non-terminal work order to CANCELLED.
func Cancel(ctx context.Context, eng Engine, id, actor, reason string) (*WorkOrder, error) {
	return eng.Cancel(ctx, id, actor, reason)
}

// AutoAssign selects the best eligible technician and assigns the order.
func AutoAssign(ctx context.Context, eng Engine, id string) (*WorkOrder, error) {
	return eng.AutoAssign(ctx, id)
}

// SetSLA applies a named SLA anchored to the current time.
func SetSLA(ctx context.Context, eng Engine, id, name string, respondMins, resolveMins int) (*WorkOrder, error) {
	return eng.SetSLA(ctx, id, name, respondMins, resolveMins)
}

// GetSLAStatus computes the order's standing against its deadlines.
func GetSLAStatus(ctx context.Context, eng Engine, id string) (*SLAStatus, error) {
	return eng.SLAStatus(ctx, id)
}
