// Package queue is the scheduling core: the job data model, its SQLite
// store, the queue with its observation channel, and the worker-pool
// scheduler that bridges file notifications into prioritized jobs.
package queue

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Status is a job's lifecycle state.
//
// PENDING -> RUNNING -> {COMPLETED | FAILED}, plus PENDING -> CANCELED.
// No transition leaves a terminal state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// Terminal reports whether the status admits no further transitions
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Type selects the job body executed by a worker
type Type string

const (
	// TypeSpreadsheet loads a tabular file and records its shape
	TypeSpreadsheet Type = "spreadsheet"
	// TypeArtifact drives an EZCAD2 session over an .ezd artifact
	TypeArtifact Type = "artifact"
)

// Job is one unit of scheduled work. Mutated only by the worker that
// claimed it; never deleted automatically (an explicit sweep removes
// terminal records).
//
// Invariant: at most one of Result/Error is populated, and both stay empty
// while the job is PENDING or RUNNING.
type Job struct {
	ID       string `json:"id"`
	FilePath string `json:"file_path"`
	Type     Type   `json:"job_type"`
	// Priority: lower value served first; ties broken by arrival order
	Priority int    `json:"priority"`
	Seq      int64  `json:"seq"` // arrival order, assigned by the store
	Status   Status `json:"status"`

	AddedAt   time.Time  `json:"added_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	Result map[string]interface{} `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

var jobCounter atomic.Int64

// newJobID produces a monotonic-enough identifier: millisecond timestamp
// plus a process-wide sequence. No ordering guarantee beyond insertion
// order is needed; the store's seq column carries arrival order.
func newJobID() string {
	return fmt.Sprintf("job_%d_%d", time.Now().UnixMilli(), jobCounter.Add(1))
}

// NewJob creates a PENDING job record
func NewJob(filePath string, jobType Type, priority int) *Job {
	return &Job{
		ID:       newJobID(),
		FilePath: filePath,
		Type:     jobType,
		Priority: priority,
		Status:   StatusPending,
		AddedAt:  time.Now(),
	}
}

// Start marks the job as running and stamps the start time
func (j *Job) Start() {
	now := time.Now()
	j.Status = StatusRunning
	j.StartedAt = &now
}

// Complete marks the job as completed with its success payload
func (j *Job) Complete(result map[string]interface{}) {
	now := time.Now()
	j.Status = StatusCompleted
	j.Result = result
	j.Error = ""
	j.EndedAt = &now
}

// Fail marks the job as failed with the error message
func (j *Job) Fail(err error) {
	now := time.Now()
	j.Status = StatusFailed
	j.Result = nil
	j.Error = err.Error()
	j.EndedAt = &now
}

// Cancel marks a pending job as canceled
func (j *Job) Cancel() {
	now := time.Now()
	j.Status = StatusCanceled
	j.EndedAt = &now
}
