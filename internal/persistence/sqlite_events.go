package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/TheGringo-ai/wrench/pkg/api"
)

// SQLiteEventStore stores work order events in SQLite.
type SQLiteEventStore struct {
	db *sql.DB
}

// Ensure SQLiteEventStore implements the interface.
var _ EventStore = (*SQLiteEventStore)(nil)

func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	s := &SQLiteEventStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteEventStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workorder_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			work_order_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			actor TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT '',
			channel TEXT NOT NULL DEFAULT '',
			level INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_workorder_events_wo ON workorder_events(work_order_id, id);
	`)
	return err
}

func (s *SQLiteEventStore) AppendEvent(ctx context.Context, ev api.WorkOrderEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workorder_events (work_order_id, at, type, actor, detail, channel, level)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.WorkOrderID,
		at.UnixNano(),
		string(ev.Type),
		ev.Actor,
		ev.Detail,
		string(ev.Channel),
		ev.Level,
	)
	return err
}

func (s *SQLiteEventStore) ListEvents(ctx context.Context, workOrderID string) ([]api.WorkOrderEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT work_order_id, at, type, actor, detail, channel, level
		FROM workorder_events
		WHERE work_order_id = ?
		ORDER BY id ASC`, workOrderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.WorkOrderEvent
	for rows.Next() {
		var (
			id      string
			atN     int64
			typ     string
			actor   string
			detail  string
			channel string
			level   int
		)
		if err := rows.Scan(&id, &atN, &typ, &actor, &detail, &channel, &level); err != nil {
			return nil, err
		}
		out = append(out, api.WorkOrderEvent{
			WorkOrderID: id,
			At:          time.Unix(0, atN),
			Type:        api.EventType(typ),
			Actor:       actor,
			Detail:      detail,
			Channel:     api.SLAChannel(channel),
			Level:       level,
		})
	}
	return out, rows.Err()
}
