package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// SQLiteWorkOrderStore is a WorkOrderStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteWorkOrderStore struct {
	db *sql.DB
}

// Ensure SQLiteWorkOrderStore implements WorkOrderStore.
var _ WorkOrderStore = (*SQLiteWorkOrderStore)(nil)

// NewSQLiteWorkOrderStore initializes the required schema in the given
// database and returns a new SQLiteWorkOrderStore.
func NewSQLiteWorkOrderStore(db *sql.DB) (*SQLiteWorkOrderStore, error) {
	s := &SQLiteWorkOrderStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteWorkOrderStore) initSchema() error {
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
			required_skills BLOB,
			tags BLOB,
			pending_approvers BLOB,
			approvals BLOB,
			completion_notes TEXT NOT NULL DEFAULT '',
			sla BLOB,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			lease_owner TEXT NOT NULL DEFAULT '',
			lease_expires_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_work_orders_status ON work_orders(status);
		CREATE INDEX IF NOT EXISTS idx_work_orders_assignee ON work_orders(assignee_id);`,
	)
	return err
}

func (s *SQLiteWorkOrderStore) SaveWorkOrder(wo *api.WorkOrder) error {
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
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

func (s *SQLiteWorkOrderStore) UpdateWorkOrder(wo *api.WorkOrder) error {
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
		SET number = ?, title = ?, description = ?, status = ?, priority = ?, work_type = ?, asset_id = ?, created_by = ?, assignee_id = ?, required_skills = ?, tags = ?, pending_approvers = ?, approvals = ?, completion_notes = ?, sla = ?, updated_at = ?
		WHERE id = ?`,
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

func (s *SQLiteWorkOrderStore) GetWorkOrder(id string) (*api.WorkOrder, error) {
	row := s.db.QueryRow(`
		SELECT id, number, title, description, status, priority, work_type, asset_id, created_by, assignee_id, required_skills, tags, pending_approvers, approvals, completion_notes, sla, created_at, updated_at
		FROM work_orders
		WHERE id = ?`,
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

func (s *SQLiteWorkOrderStore) ListWorkOrders(filter Filter) ([]*api.WorkOrder, error) {
	query := `
		SELECT id, number, title, description, status, priority, work_type, asset_id, created_by, assignee_id, required_skills, tags, pending_approvers, approvals, completion_notes, sla, created_at, updated_at
		FROM work_orders`
	var args []any
	var clauses []string

	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.AssigneeID != "" {
		clauses = append(clauses, "assignee_id = ?")
		args = append(args, filter.AssigneeID)
	}
	if filter.Priority != "" {
		clauses = append(clauses, "priority = ?")
		args = append(args, string(filter.Priority))
	}
	if filter.ActiveOnly {
		clauses = append(clauses, "status NOT IN (?, ?, ?)")
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

// scanWorkOrderRow rebuilds a work order from the shared column layout used
// by the SQLite and Postgres stores.
func scanWorkOrderRow(scan func(dest ...any) error) (*api.WorkOrder, error) {
	var wo api.WorkOrder
	var statusStr, priorityStr, workTypeStr string
	var skills, tags, pending, approvals, slaBytes []byte
	var createdAt, updatedAt int64

	if err := scan(
		&wo.ID, &wo.Number, &wo.Title, &wo.Description,
		&statusStr, &priorityStr, &workTypeStr,
		&wo.AssetID, &wo.CreatedBy, &wo.AssigneeID,
		&skills, &tags, &pending, &approvals,
		&wo.CompletionNotes, &slaBytes,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	wo.Status = api.Status(statusStr)
	wo.Priority = api.Priority(priorityStr)
	wo.WorkType = api.WorkType(workTypeStr)
	wo.CreatedAt = time.Unix(0, createdAt)
	wo.UpdatedAt = time.Unix(0, updatedAt)

	skillsVal, err := DecodeValue[[]string](skills)
	if err != nil {
		return nil, err
	}
	wo.RequiredSkills = skillsVal

	tagsVal, err := DecodeValue[[]string](tags)
	if err != nil {
		return nil, err
	}
	wo.Tags = tagsVal

	pendingVal, err := DecodeValue[[]string](pending)
	if err != nil {
		return nil, err
	}
	wo.PendingApprovers = pendingVal

	approvalsVal, err := DecodeValue[[]api.Approval](approvals)
	if err != nil {
		return nil, err
	}
	wo.Approvals = approvalsVal

	if len(slaBytes) > 0 {
		slaVal, err := DecodeValue[api.SLA](slaBytes)
		if err != nil {
			return nil, err
		}
		wo.SLA = &slaVal
	}

	return &wo, nil
}

func (s *SQLiteWorkOrderStore) TryAcquireLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) (bool, error) {
	now := time.Now()
	expires := now.Add(ttl).UnixNano()
	nowInt := now.UnixNano()

	res, err := s.db.ExecContext(ctx, `
		UPDATE work_orders
		SET lease_owner = ?, lease_expires_at = ?
		WHERE id = ?
		AND (
			lease_owner = ''
			OR lease_expires_at <= ?
			OR lease_owner = ?
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

func (s *SQLiteWorkOrderStore) RenewLease(ctx context.Context, workOrderID, owner string, ttl time.Duration) error {
	expires := time.Now().Add(ttl).UnixNano()
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_orders
		SET lease_expires_at = ?
		WHERE id = ? AND lease_owner = ?`,
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

func (s *SQLiteWorkOrderStore) ReleaseLease(ctx context.Context, workOrderID, owner string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE work_orders
		SET lease_owner = '', lease_expires_at = 0
		WHERE id = ? AND lease_owner = ?`,
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
		SELECT lease_owner, lease_expires_at FROM work_orders WHERE id = ?`,
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
