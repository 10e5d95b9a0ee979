package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TheGringo-ai/wrench/internal/persistence"
	"github.com/TheGringo-ai/wrench/pkg/api"
)

// SQLiteDirectory stores the technician roster in SQLite. Reserve relies on
// a conditional UPDATE, so the capacity check and the increment are one
// atomic statement even across processes sharing the database file.
type SQLiteDirectory struct {
	db *sql.DB
}

var _ api.TechnicianDirectory = (*SQLiteDirectory)(nil)

func NewSQLiteDirectory(db *sql.DB) (*SQLiteDirectory, error) {
	d := &SQLiteDirectory{db: db}
	if err := d.initSchema(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *SQLiteDirectory) initSchema() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS technicians (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			skills BLOB,
			active_count INTEGER NOT NULL DEFAULT 0
		);
	`)
	return err
}

// Put inserts or replaces a technician entry, keeping its current active
// count when the entry already exists.
func (d *SQLiteDirectory) Put(ctx context.Context, t api.Technician) error {
	skills, err := persistence.EncodeValue(t.Skills)
	if err != nil {
		return err
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO technicians (id, name, skills, active_count)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, skills = excluded.skills`,
		t.ID, t.Name, skills, t.ActiveCount,
	)
	return err
}

func (d *SQLiteDirectory) ListTechnicians(ctx context.Context) ([]*api.Technician, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, skills, active_count FROM technicians ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*api.Technician
	for rows.Next() {
		var (
			t      api.Technician
			skills []byte
		)
		if err := rows.Scan(&t.ID, &t.Name, &skills, &t.ActiveCount); err != nil {
			return nil, err
		}
		t.Skills, err = persistence.DecodeValue[[]string](skills)
		if err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (d *SQLiteDirectory) Reserve(ctx context.Context, technicianID string, limit int) (bool, error) {
	res, err := d.db.ExecContext(ctx, `
		UPDATE technicians SET active_count = active_count + 1
		WHERE id = ? AND active_count < ?`,
		technicianID, limit,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	// Nothing updated: either at capacity or unknown. Tell them apart.
	var exists int
	err = d.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM technicians WHERE id = ?`, technicianID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, fmt.Errorf("%w: %s", api.ErrTechnicianNotFound, technicianID)
	}
	return false, nil
}

func (d *SQLiteDirectory) Release(ctx context.Context, technicianID string) error {
	res, err := d.db.ExecContext(ctx, `
		UPDATE technicians SET active_count = MAX(active_count - 1, 0)
		WHERE id = ?`,
		technicianID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", api.ErrTechnicianNotFound, technicianID)
	}
	return nil
}
