package queue

import (
	"database/sql"
	"sync"
	"time"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
)

// SubscriberChannelBufferSize is the buffer size for subscriber channels
const SubscriberChannelBufferSize = 100

// Queue is the job collection guarded by one coarse lock, with subscriber
// channels as the thread-safe observation surface a presentation layer can
// consume. Background work never mutates UI state directly.
type Queue struct {
	store       *Store
	mu          sync.Mutex
	subscribers []chan *Job
}

// NewQueue creates a queue over the given database
func NewQueue(db *sql.DB) *Queue {
	return &Queue{
		store:       NewStore(db),
		subscribers: make([]chan *Job, 0),
	}
}

// Enqueue creates a PENDING record, immediately visible to workers, and
// returns the new job.
func (q *Queue) Enqueue(filePath string, jobType Type, priority int) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job := NewJob(filePath, jobType, priority)
	if err := q.store.CreateJob(job); err != nil {
		return nil, errors.Wrap(err, "failed to enqueue job")
	}

	q.notifySubscribers(job)
	return job, nil
}

// Dequeue claims the next dispatchable job and marks it RUNNING. Returns
// nil when nothing is pending. The claim is atomic under the queue lock, so
// two workers can never claim the same record.
func (q *Queue) Dequeue() (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.NextPending()
	if err != nil || job == nil {
		return nil, err
	}

	job.Start()
	if err := q.store.UpdateJob(job); err != nil {
		return nil, errors.Wrapf(err, "failed to mark job %s running", job.ID)
	}

	q.notifySubscribers(job)
	return job, nil
}

// Get retrieves a job by id
func (q *Queue) Get(id string) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.GetJob(id)
}

// List returns jobs in arrival order, optionally filtered by status
func (q *Queue) List(status *Status, limit int) ([]*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.ListJobs(status, limit)
}

// Cancel cancels a job if and only if it is still PENDING. Canceling a
// RUNNING or terminal job fails with ErrNotCancelable.
func (q *Queue) Cancel(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, err := q.store.GetJob(id)
	if err != nil {
		return err
	}

	if job.Status != StatusPending {
		return errors.Wrapf(errors.ErrNotCancelable, "job %s is %s", id, job.Status)
	}

	job.Cancel()
	if err := q.store.UpdateJob(job); err != nil {
		return errors.Wrapf(err, "failed to cancel job %s", id)
	}

	q.notifySubscribers(job)
	return nil
}

// Complete marks a claimed job COMPLETED with its result payload
func (q *Queue) Complete(job *Job, result map[string]interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.Complete(result)
	if err := q.store.UpdateJob(job); err != nil {
		return errors.Wrapf(err, "failed to complete job %s", job.ID)
	}

	q.notifySubscribers(job)
	return nil
}

// Fail marks a claimed job FAILED with the error captured from its body
func (q *Queue) Fail(job *Job, jobErr error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	job.Fail(jobErr)
	if err := q.store.UpdateJob(job); err != nil {
		return errors.Wrapf(err, "failed to record failure for job %s", job.ID)
	}

	q.notifySubscribers(job)
	return nil
}

// RecoverOrphans fails every job still marked running. Called once at
// startup: such jobs were claimed by a previous process that died before
// finishing them. They are failed rather than re-queued because re-running
// an artifact job could mark the workpiece twice. Returns the count failed.
func (q *Queue) RecoverOrphans() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.FailRunning("worker terminated before completion")
}

// ClearTerminal removes terminal records. olderThan == 0 removes all of
// them; otherwise only those older than the age. Returns the count removed.
func (q *Queue) ClearTerminal(olderThan time.Duration) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.SweepTerminal(olderThan)
}

// Counts returns the number of pending and running jobs
func (q *Queue) Counts() (pending int, running int, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pending, err = q.store.CountByStatus(StatusPending)
	if err != nil {
		return 0, 0, err
	}
	running, err = q.store.CountByStatus(StatusRunning)
	if err != nil {
		return 0, 0, err
	}
	return pending, running, nil
}

// Subscribe returns a buffered channel receiving every job state change.
// The caller is responsible for calling Unsubscribe when done.
func (q *Queue) Subscribe() chan *Job {
	q.mu.Lock()
	defer q.mu.Unlock()

	ch := make(chan *Job, SubscriberChannelBufferSize)
	q.subscribers = append(q.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber channel. The channel is not closed here;
// the caller owns its lifecycle.
func (q *Queue) Unsubscribe(ch chan *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, sub := range q.subscribers {
		if sub == ch {
			q.subscribers = append(q.subscribers[:i], q.subscribers[i+1:]...)
			return
		}
	}
}

// notifySubscribers sends a snapshot to all subscribers. Non-blocking: a
// slow subscriber misses updates rather than stalling the queue.
// Caller must hold q.mu.
func (q *Queue) notifySubscribers(job *Job) {
	snapshot := *job
	for _, ch := range q.subscribers {
		select {
		case ch <- &snapshot:
		default:
		}
	}
}
