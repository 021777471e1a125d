package testing

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Yunusemreunal45/ezcad2-wscad/queue/schema"
)

// CreateTestDB creates an in-memory SQLite test database with the job schema
// applied. Automatically registers cleanup via t.Cleanup().
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("Failed to enable foreign keys: %v", err)
	}

	if err := schema.Apply(db); err != nil {
		t.Fatalf("Failed to apply job schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}
