package queue

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// Store handles persistence of job records
type Store struct {
	db *sql.DB
}

// NewStore creates a job store over db. The schema must already be applied
// (see queue/schema).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const jobColumns = `seq, id, file_path, job_type, priority, status, added_at, started_at, ended_at, result, error`

// CreateJob inserts a new job and assigns its arrival sequence
func (s *Store) CreateJob(job *Job) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		INSERT INTO jobs (id, file_path, job_type, priority, status, added_at, started_at, ended_at, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.FilePath,
		string(job.Type),
		job.Priority,
		string(job.Status),
		job.AddedAt,
		job.StartedAt,
		job.EndedAt,
		resultJSON,
		nullString(job.Error),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create job %s", job.ID)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return errors.Wrapf(err, "failed to read arrival sequence for job %s", job.ID)
	}
	job.Seq = seq
	return nil
}

// GetJob retrieves a job by ID
func (s *Store) GetJob(id string) (*Job, error) {
	row := s.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError("job %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get job %s", id)
	}
	return job, nil
}

// UpdateJob updates an existing job record
func (s *Store) UpdateJob(job *Job) error {
	resultJSON, err := marshalResult(job.Result)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		UPDATE jobs
		SET status = ?, started_at = ?, ended_at = ?, result = ?, error = ?
		WHERE id = ?`,
		string(job.Status),
		job.StartedAt,
		job.EndedAt,
		resultJSON,
		nullString(job.Error),
		job.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update job %s", job.ID)
	}
	return nil
}

// NextPending returns the dispatchable job: lowest priority value first,
// ties broken by arrival order. Returns nil when nothing is pending.
func (s *Store) NextPending() (*Job, error) {
	row := s.db.QueryRow(`
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = 'pending'
		ORDER BY priority ASC, seq ASC
		LIMIT 1`)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get next pending job")
	}
	return job, nil
}

// ListJobs returns jobs in arrival order, optionally filtered by status.
// limit <= 0 means no limit.
func (s *Store) ListJobs(status *Status, limit int) ([]*Job, error) {
	var rows *sql.Rows
	var err error

	if limit <= 0 {
		limit = -1 // SQLite: negative LIMIT disables the cap
	}

	base := `SELECT ` + jobColumns + ` FROM jobs`
	if status != nil {
		rows, err = s.db.Query(base+` WHERE status = ? ORDER BY seq ASC LIMIT ?`, string(*status), limit)
	} else {
		rows, err = s.db.Query(base+` ORDER BY seq ASC LIMIT ?`, limit)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to list jobs")
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan job")
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "error iterating jobs")
	}
	return jobs, nil
}

// SweepTerminal deletes terminal-state records. olderThan == 0 removes all
// terminal records; otherwise only those whose end (or arrival, for records
// that never ran) is older than the age. Returns the number removed.
func (s *Store) SweepTerminal(olderThan time.Duration) (int, error) {
	var res sql.Result
	var err error

	base := `DELETE FROM jobs WHERE status IN ('completed', 'failed', 'canceled')`
	if olderThan == 0 {
		res, err = s.db.Exec(base)
	} else {
		cutoff := time.Now().Add(-olderThan)
		res, err = s.db.Exec(base+` AND COALESCE(ended_at, added_at) <= ?`, cutoff)
	}
	if err != nil {
		return 0, errors.Wrap(err, "failed to sweep terminal jobs")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count swept jobs")
	}
	return int(n), nil
}

// FailRunning marks every running record as failed with the given error
// message. Rows in the running state at startup belonged to a previous
// process that never finished them. Returns the number of rows updated.
func (s *Store) FailRunning(message string) (int, error) {
	res, err := s.db.Exec(
		`UPDATE jobs SET status = ?, error = ?, ended_at = ? WHERE status = ?`,
		string(StatusFailed), message, time.Now(), string(StatusRunning),
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to fail running jobs")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count failed jobs")
	}
	return int(n), nil
}

// CountByStatus returns the number of jobs in the given status
func (s *Store) CountByStatus(status Status) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM jobs WHERE status = ?`, string(status)).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to count %s jobs", status)
	}
	return n, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*Job, error) {
	var job Job
	var jobType, status string
	var startedAt, endedAt sql.NullTime
	var result, jobErr sql.NullString

	err := row.Scan(
		&job.Seq,
		&job.ID,
		&job.FilePath,
		&jobType,
		&job.Priority,
		&status,
		&job.AddedAt,
		&startedAt,
		&endedAt,
		&result,
		&jobErr,
	)
	if err != nil {
		return nil, err
	}

	job.Type = Type(jobType)
	job.Status = Status(status)
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		job.EndedAt = &t
	}
	if jobErr.Valid {
		job.Error = jobErr.String
	}
	if result.Valid && result.String != "" {
		if err := json.Unmarshal([]byte(result.String), &job.Result); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal result for job %s", job.ID)
		}
	}

	return &job, nil
}

func marshalResult(result map[string]interface{}) (sql.NullString, error) {
	if result == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return sql.NullString{}, errors.Wrap(err, "failed to marshal job result")
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
