// Package schema owns the job store's SQLite schema.
package schema

import (
	"database/sql"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

const jobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	file_path  TEXT NOT NULL,
	job_type   TEXT NOT NULL,
	priority   INTEGER NOT NULL DEFAULT 0,
	status     TEXT NOT NULL,
	added_at   TIMESTAMP NOT NULL,
	started_at TIMESTAMP,
	ended_at   TIMESTAMP,
	result     TEXT,
	error      TEXT
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_dispatch ON jobs(status, priority, seq);
`

// Apply creates the job tables and indexes if they do not exist
func Apply(db *sql.DB) error {
	if _, err := db.Exec(jobsTable); err != nil {
		return errors.Wrap(err, "failed to apply jobs schema")
	}
	return nil
}
