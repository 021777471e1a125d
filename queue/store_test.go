package queue

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Yunusemreunal45/ezcad2-wscad/errors"
	eztest "github.com/Yunusemreunal45/ezcad2-wscad/internal/testing"
)

func TestStore_RoundTrip(t *testing.T) {
	db := eztest.CreateTestDB(t)
	store := NewStore(db)

	job := NewJob("/data/parts.xlsx", TypeSpreadsheet, 5)
	require.NoError(t, store.CreateJob(job))
	assert.Greater(t, job.Seq, int64(0), "seq should be assigned on insert")

	got, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, "/data/parts.xlsx", got.FilePath)
	assert.Equal(t, TypeSpreadsheet, got.Type)
	assert.Equal(t, 5, got.Priority)
	assert.Equal(t, StatusPending, got.Status)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.EndedAt)

	got.Start()
	got.Complete(map[string]interface{}{"rows_processed": 3, "columns": []interface{}{"Part", "Qty"}})
	require.NoError(t, store.UpdateJob(got))

	final, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, final.Status)
	require.NotNil(t, final.StartedAt)
	require.NotNil(t, final.EndedAt)
	assert.Equal(t, float64(3), final.Result["rows_processed"])
}

func TestStore_GetJobNotFound(t *testing.T) {
	db := eztest.CreateTestDB(t)
	store := NewStore(db)

	_, err := store.GetJob("job_does_not_exist")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestStore_NextPendingEmptyQueue(t *testing.T) {
	db := eztest.CreateTestDB(t)
	store := NewStore(db)

	job, err := store.NextPending()
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestStore_ListJobsFiltersByStatus(t *testing.T) {
	db := eztest.CreateTestDB(t)
	store := NewStore(db)

	a := NewJob("/data/a.xlsx", TypeSpreadsheet, 0)
	b := NewJob("/data/b.ezd", TypeArtifact, 0)
	require.NoError(t, store.CreateJob(a))
	require.NoError(t, store.CreateJob(b))

	b.Start()
	require.NoError(t, store.UpdateJob(b))

	pending := StatusPending
	jobs, err := store.ListJobs(&pending, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, a.ID, jobs[0].ID)

	all, err := store.ListJobs(nil, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_SweepTerminalKeepsLiveJobs(t *testing.T) {
	db := eztest.CreateTestDB(t)
	store := NewStore(db)

	live := NewJob("/data/live.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, store.CreateJob(live))

	dead := NewJob("/data/dead.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, store.CreateJob(dead))
	dead.Start()
	dead.Fail(errors.New("boom"))
	require.NoError(t, store.UpdateJob(dead))

	n, err := store.SweepTerminal(0)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetJob(live.ID)
	assert.NoError(t, err)
	_, err = store.GetJob(dead.ID)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestStore_CreateJobPropagatesDatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO jobs").
		WillReturnError(errors.New("disk I/O error"))

	store := NewStore(db)
	err = store.CreateJob(NewJob("/data/a.xlsx", TypeSpreadsheet, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_SweepTerminalCutoff(t *testing.T) {
	db := eztest.CreateTestDB(t)
	store := NewStore(db)

	old := NewJob("/data/old.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, store.CreateJob(old))
	old.Start()
	old.Complete(nil)
	ended := time.Now().Add(-48 * time.Hour)
	old.EndedAt = &ended
	require.NoError(t, store.UpdateJob(old))

	recent := NewJob("/data/recent.xlsx", TypeSpreadsheet, 0)
	require.NoError(t, store.CreateJob(recent))
	recent.Start()
	recent.Complete(nil)
	require.NoError(t, store.UpdateJob(recent))

	n, err := store.SweepTerminal(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetJob(recent.ID)
	assert.NoError(t, err)
}
