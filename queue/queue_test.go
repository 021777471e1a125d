package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
	eztest "github.com/Yunusemreunal45/ezcad2-wscad/internal/testing"
)

func TestQueue_EnqueueDequeue(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	job, err := q.Enqueue("/data/parts.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)

	claimed, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, StatusRunning, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	// Queue is now empty; Dequeue reports no work without error
	next, err := q.Dequeue()
	require.NoError(t, err)
	assert.Nil(t, next)
}

func TestQueue_PriorityThenArrivalOrder(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	// Enqueue with priorities 2, 1, 1, 3; expect the two 1s first in
	// arrival order, then 2, then 3.
	ids := make(map[string]string)
	for _, tc := range []struct {
		name     string
		priority int
	}{
		{"p2", 2},
		{"p1-first", 1},
		{"p1-second", 1},
		{"p3", 3},
	} {
		job, err := q.Enqueue("/data/"+tc.name+".ezd", TypeArtifact, tc.priority)
		require.NoError(t, err)
		ids[tc.name] = job.ID
	}

	var order []string
	for i := 0; i < 4; i++ {
		job, err := q.Dequeue()
		require.NoError(t, err)
		require.NotNil(t, job)
		order = append(order, job.ID)
	}

	assert.Equal(t, []string{ids["p1-first"], ids["p1-second"], ids["p2"], ids["p3"]}, order)
}

func TestQueue_CancelOnlyPending(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	job, err := q.Enqueue("/data/a.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)

	require.NoError(t, q.Cancel(job.ID))

	got, err := q.Get(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCanceled, got.Status)
	require.NotNil(t, got.EndedAt)

	// Second cancel is rejected: the job is no longer pending
	err = q.Cancel(job.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotCancelable))

	// A running job cannot be canceled either
	running, err := q.Enqueue("/data/b.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)
	claimed, err := q.Dequeue()
	require.NoError(t, err)
	require.Equal(t, running.ID, claimed.ID)

	err = q.Cancel(running.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotCancelable))
}

func TestQueue_CanceledJobIsNeverDispatched(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	canceled, err := q.Enqueue("/data/first.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)
	survivor, err := q.Enqueue("/data/second.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)

	require.NoError(t, q.Cancel(canceled.ID))

	claimed, err := q.Dequeue()
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, survivor.ID, claimed.ID)
}

func TestQueue_CompleteAndFail(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	_, err := q.Enqueue("/data/ok.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)
	_, err = q.Enqueue("/data/bad.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)

	first, err := q.Dequeue()
	require.NoError(t, err)
	require.NoError(t, q.Complete(first, map[string]interface{}{"rows_processed": 12}))

	done, err := q.Get(first.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
	assert.Equal(t, float64(12), done.Result["rows_processed"])
	assert.Empty(t, done.Error)
	require.NotNil(t, done.EndedAt)

	second, err := q.Dequeue()
	require.NoError(t, err)
	require.NoError(t, q.Fail(second, errors.New("sheet has no header row")))

	failed, err := q.Get(second.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "sheet has no header row", failed.Error)
	assert.Nil(t, failed.Result)
}

func TestQueue_Counts(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue("/data/file.xlsx", TypeSpreadsheet, 0)
		require.NoError(t, err)
	}
	_, err := q.Dequeue()
	require.NoError(t, err)

	pending, running, err := q.Counts()
	require.NoError(t, err)
	assert.Equal(t, 2, pending)
	assert.Equal(t, 1, running)
}

func TestQueue_ClearTerminal(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	pending, err := q.Enqueue("/data/keep.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)

	job, err := q.Enqueue("/data/done.xlsx", TypeSpreadsheet, 1)
	require.NoError(t, err)
	claimed, err := q.Dequeue()
	require.NoError(t, err)
	require.Equal(t, pending.ID, claimed.ID)
	require.NoError(t, q.Complete(claimed, nil))

	canceled := job
	require.NoError(t, q.Cancel(canceled.ID))

	// olderThan 0 removes all terminal records
	n, err := q.ClearTerminal(0)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remaining, err := q.List(nil, 0)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestQueue_ClearTerminalRespectsAge(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	job, err := q.Enqueue("/data/fresh.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)
	claimed, err := q.Dequeue()
	require.NoError(t, err)
	require.Equal(t, job.ID, claimed.ID)
	require.NoError(t, q.Complete(claimed, nil))

	// Record just finished, so nothing is old enough to sweep
	n, err := q.ClearTerminal(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestQueue_SubscribersSeeLifecycle(t *testing.T) {
	db := eztest.CreateTestDB(t)
	q := NewQueue(db)

	ch := q.Subscribe()
	defer q.Unsubscribe(ch)

	job, err := q.Enqueue("/data/a.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, err)

	claimed, err := q.Dequeue()
	require.NoError(t, err)
	require.NoError(t, q.Complete(claimed, nil))

	statuses := make([]Status, 0, 3)
	for i := 0; i < 3; i++ {
		select {
		case update := <-ch:
			assert.Equal(t, job.ID, update.ID)
			statuses = append(statuses, update.Status)
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for subscriber update %d", i)
		}
	}
	assert.Equal(t, []Status{StatusPending, StatusRunning, StatusCompleted}, statuses)
}
