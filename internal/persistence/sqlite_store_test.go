package persistence

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"
)

func newTestSQLiteDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	// Every pooled connection gets its own :memory: database, so keep one.
	db.SetMaxOpenConns(1)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

func newTestSQLiteStore(t *testing.T) *SQLiteWorkOrderStore {
	t.Helper()

	store, err := NewSQLiteWorkOrderStore(newTestSQLiteDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteWorkOrderStore failed: %v", err)
	}
	return store
}

func TestSQLiteWorkOrderStore_Contract(t *testing.T) {
	runWorkOrderStoreTests(t, newTestSQLiteStore(t))
}

func TestSQLiteWorkOrderStore_SchemaIdempotent(t *testing.T) {
	db := newTestSQLiteDB(t)

	if _, err := NewSQLiteWorkOrderStore(db); err != nil {
		t.Fatalf("first init: %v", err)
	}
	if _, err := NewSQLiteWorkOrderStore(db); err != nil {
		t.Fatalf("second init on the same database: %v", err)
	}
}
