package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// PostgresWorkOrderStore is a WorkOrderStore backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresWorkOrderStore struct {
	db *sql.DB
}

// Ensure PostgresWorkOrderStore implements WorkOrderStore.
var _ WorkOrderStore = (*PostgresWorkOrderStore)(nil)

// NewPostgresWorkOrderStore initializes the required schema in the given
// database and returns a new PostgresWorkOrderStore.
func NewPostgresWorkOrderStore(db *sql.DB) (*PostgresWorkOrderStore, error) {
	s := &PostgresWorkOrderStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresWorkOrderStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS work_orders (
			id TEXT PRIMARY KEY,
			number TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			work_type TEXT NOT NULL,
			asset_id TEXT NOT NULL DEFAULT '',
			created_by TEXT NOT NULL DEFAULT '',
			assignee_id TEXT NOT NULL DEFAULT '',
			required_skills BYTEA,
			tags BYTEA,
			pending_approvers BYTEA,
			approvals BYTEA,
			completion_notes TEXT NOT NULL DEFAULT '',
			sla BYTEA,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL,
			lease_owner TEXT NOT NULL DEFAULT '',
			lease_expires_at BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders(status);
		CREATE INDEX IF NOT EXISTS idx_work_orders_assignee ON work_orders(assignee_id);
	`)
	return err
}

func (s *PostgresWorkOrderStore) SaveWorkOrder(wo *api.WorkOrder) error {
	skills, err := EncodeValue(wo.RequiredSkills)
	if err != nil {
		return err
	}

	tags, err := EncodeValue(wo.Tags)
	if err != nil {
		return err
	}

	pending, err := EncodeValue(wo.PendingApprovers)
	if err != nil {
		return err
	}

	approvals, err := EncodeValue(wo.Approvals)
	if err != nil {
		return err
	}

	var slaBytes []byte
	if wo.SLA != nil {
		slaBytes, err = EncodeValue(*wo.SLA)
		if err != nil {
			return err
		}
	}

	_, err = s.db.Exec(`
		INSERT INTO work_orders (id, number, title, description, status, priority, work_type, asset_id, created_by, assignee_id, required_skills, tags, pending_approvers, approvals, completion_notes, sla, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`,
		wo.ID,
		wo.Number,
		wo.Title,
		wo.Description,
		string(wo.Status),
		string(wo.Priority),
		string(wo.WorkType),
		wo.AssetID,
		wo.CreatedBy,
		wo.AssigneeID,
		skills,
		tags,
		pending,
		approvals,
		wo.CompletionNotes,
		slaBytes,
		wo.CreatedAt.UnixNano(),
		wo.UpdatedAt.UnixNano(),
	)
	return err
}

func (s *PostgresWorkOrderStore) UpdateWorkOrder(wo *api.WorkOrder) error {
	skills, err := EncodeValue(wo.RequiredSkills)
	if err != nil {
		return err
	}

	tags, err := EncodeValue(wo.Tags)
	if err != nil {
		return err
	}

	pending, err := EncodeValue(wo.PendingApprovers)
	if err != nil {
		return err
	}

	approvals, err := EncodeValue(wo.Approvals)
	if err != nil {
		return err
	}

	var slaBytes []byte
	if wo.SLA != nil {
		slaBytes, err = EncodeValue(*wo.SLA)
		if err != nil {
			return err
		}
	}

	res, err := s.db.Exec(`
		UPDATE work_orders
		SET number            = $1,
		    title             = $2,
		    description       = $3,
		    status            = $4,
		    priority          = $5,
		    work_type         = $6,
		    asset_id          = $7,
		    created_by        = $8,
		    assignee_id       = $9,
		    required_skills   = $10,
		    tags              = $11,
		    pending_approvers = $12,
		    approvals         = $13,
		    completion_notes  = $14,
		    sla               = $15,
		    updated_at        = $16
		WHERE id = $17
	`,
		wo.Number,
		wo.Title,
		wo.Description,
		string(wo.Status),
		string(wo.Priority),
		string(wo.WorkType),
		wo.AssetID,
		wo.CreatedBy,
		wo.AssigneeID,
		skills,
		tags,
		pending,
		approvals,
		wo.CompletionNotes,
		slaBytes,
		wo.UpdatedAt.UnixNano(),
		wo.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrWorkOrderNotFound
	}

	return nil
}

func (s *PostgresWorkOrderStore) GetWorkOrder(id string) (*api.WorkOrder, error) {
	row := s.db.QueryRow(`
		SELECT id, number, title, description, status, priority, work_type, asset_id, created_by, assignee_id, required_skills, tags, pending_approvers, approvals, completion_notes, sla, created_at, updated_at
		FROM work_orders
		WHERE id = $1
	`,
		id,
	)

	wo, err := scanWorkOrderRow(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrWorkOrderNotFound
		}
		return nil, err
	}
	return wo, nil
}

func (s *PostgresWorkOrderStore) ListWorkOrders(filter Filter) ([]*api.WorkOrder, error) {
	query := `
		SELECT id, number, title, description, status, priority, work_type, asset_id, created_by, assignee_id, required_skills, tags, pending_approvers, approvals, completion_notes, sla, created_at, updated_at
		FROM work_orders`
	var args []any
	var clauses []string

	if filter.Status != "" {
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, string(filter.Status))
	}
	if filter.AssigneeID != "" {
		clauses = append(clauses, fmt.Sprintf("assignee_id = $%d", len(args)+1))
		args = append(args, filter.AssigneeID)
	}
	if filter.Priority != "" {
		clauses = append(clauses, fmt.Sprintf("priority = $%d", len(args)+1))
		args = append(args, string(filter.Priority))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, fmt.Sprintf("status NOT IN ($%d, $%d, $%d)", len(args)+1, len(args)+2, len(args)+3))
		args = append(args, string(api.StatusRejected), string(api.StatusCompleted), string(api.StatusCancelled))
	}
	if filter.WithSLA {
		clauses = append(clauses, "sla IS NOT NULL")
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workorders []*api.WorkOrder

	for rows.Next() {
		wo, err := scanWorkOrderRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		workorders = append(workorders, wo)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return workorders, nil
}

func (s *PostgresWorkOrderStore) TryAcquireLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expires := now.Add(ttl).UnixNano()
	nowInt := now.UnixNano()

	res, err := s.db.ExecContext(ctx, `
		UPDATE work_orders
		SET lease_owner = $1, lease_expires_at = $2
		WHERE id = $3
		AND (
			lease_owner = ''
			OR lease_expires_at <= $4
			OR lease_owner = $5
		)`,
		owner, expires, workOrderID, nowInt, owner,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *PostgresWorkOrderStore) RenewLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) error {
	expires := time.Now().Add(ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_orders
		SET lease_expires_at = $1
		WHERE id = $2 AND lease_owner = $3`,
		expires, workOrderID, owner,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return api.ErrWorkOrderLocked
	}
	return nil
}

func (s *PostgresWorkOrderStore) ReleaseLease(ctx context.Context, workOrderID, owner string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_orders
		SET lease_owner = '', lease_expires_at = 0
		WHERE id = $1 AND lease_owner = $2`,
		workOrderID, owner,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Not held by us: absent and already-released are both fine, a live
	// lease under another owner is not.
	row := s.db.QueryRowContext(ctx, `
		SELECT lease_owner, lease_expires_at FROM work_orders WHERE id = $1`,
		workOrderID,
	)
	var curOwner string
	var expiresAt int64
	if err := row.Scan(&curOwner, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if curOwner == "" || curOwner == owner || expiresAt <= time.Now().UnixNano() {
		return nil
	}
	return api.ErrWorkOrderLocked
}
