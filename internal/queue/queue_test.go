package queue

import (
	"context"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/pipeline"
)

func newTestDB(t *testing.T) *db.DatabaseConnection {
	t.Helper()
	ctx := context.Background()
	dbc, err := db.NewDatabaseConnection(ctx, filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	require.NoError(t, dbc.Migrate(ctx))
	t.Cleanup(func() { dbc.Close() })
	return dbc
}

func jobStatus(t *testing.T, dbc *db.DatabaseConnection, id string) *db.Job {
	t.Helper()
	job, err := dbc.GetJobByID(context.Background(), id)
	require.NoError(t, err)
	return job
}

func TestHeapDispatchOrder(t *testing.T) {
	q := New(newTestDB(t), pipeline.Registry{}, Options{})

	q.enqueue(&db.Job{ID: "a", Priority: 0, CreatedAt: "2026-01-01 10:00:00"})
	q.enqueue(&db.Job{ID: "b", Priority: 5, CreatedAt: "2026-01-01 10:00:05"})
	q.enqueue(&db.Job{ID: "c", Priority: 0, CreatedAt: "2026-01-01 10:00:10"})

	var order []string
	for {
		id, ok := q.pop()
		if !ok {
			break
		}
		order = append(order, id)
	}
	assert.Equal(t, []string{"b", "a", "c"}, order)
}

func TestProcessCompletesJob(t *testing.T) {
	dbc := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handlers := pipeline.Registry{
		"trim": func(ctx context.Context, job *db.Job, r *pipeline.Reporter) (db.JSONMap, error) {
			r.Report(ctx, 50, "halfway")
			return db.JSONMap{"output_file": "trim_x.mp4"}, nil
		},
	}

	q := New(dbc, handlers, Options{Workers: 2})
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	job, err := q.Submit(ctx, db.CreateJobParams{Type: "trim"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return jobStatus(t, dbc, job.ID).Status == db.JobStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	done := jobStatus(t, dbc, job.ID)
	assert.Equal(t, 100, done.Progress)
	assert.Equal(t, "trim_x.mp4", done.OutputData.String("output_file"))
	require.NotNil(t, done.StartedAt)
	require.NotNil(t, done.CompletedAt)
}

func TestTransientFailureIsRequeued(t *testing.T) {
	dbc := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	handlers := pipeline.Registry{
		"download": func(ctx context.Context, job *db.Job, r *pipeline.Reporter) (db.JSONMap, error) {
			if attempts.Add(1) < 3 {
				return nil, pipeline.Errorf(pipeline.KindTransientIO, "download", "connection reset")
			}
			return db.JSONMap{}, nil
		},
	}

	q := New(dbc, handlers, Options{Workers: 1})
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	job, err := q.Submit(ctx, db.CreateJobParams{Type: "download"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return jobStatus(t, dbc, job.ID).Status == db.JobStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	assert.EqualValues(t, 3, attempts.Load())
	assert.Equal(t, 2, jobStatus(t, dbc, job.ID).RetryCount)
}

func TestValidationFailureIsNotRetried(t *testing.T) {
	dbc := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	handlers := pipeline.Registry{
		"caption": func(ctx context.Context, job *db.Job, r *pipeline.Reporter) (db.JSONMap, error) {
			attempts.Add(1)
			return nil, pipeline.Errorf(pipeline.KindValidation, "caption", "video_id is required")
		},
	}

	q := New(dbc, handlers, Options{Workers: 1})
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	job, err := q.Submit(ctx, db.CreateJobParams{Type: "caption"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return jobStatus(t, dbc, job.ID).Status == db.JobStatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	// Give a would-be retry time to happen, then confirm it did not
	time.Sleep(200 * time.Millisecond)
	assert.EqualValues(t, 1, attempts.Load())
	assert.Equal(t, 0, jobStatus(t, dbc, job.ID).RetryCount)
}

func TestUnknownJobTypeFails(t *testing.T) {
	dbc := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := New(dbc, pipeline.Registry{}, Options{Workers: 1})
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	job, err := q.Submit(ctx, db.CreateJobParams{Type: "mystery"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return jobStatus(t, dbc, job.ID).Status == db.JobStatusFailed
	}, 5*time.Second, 20*time.Millisecond)

	failed := jobStatus(t, dbc, job.ID)
	require.NotNil(t, failed.ErrorMessage)
	assert.Contains(t, *failed.ErrorMessage, "no handler registered")

	// An unregistered type can never succeed, so no retry is spent on it
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 0, jobStatus(t, dbc, job.ID).RetryCount)
	assert.Equal(t, db.JobStatusFailed, jobStatus(t, dbc, job.ID).Status)
}

func TestCancelledJobIsSkipped(t *testing.T) {
	dbc := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var attempts atomic.Int32
	handlers := pipeline.Registry{
		"burn": func(ctx context.Context, job *db.Job, r *pipeline.Reporter) (db.JSONMap, error) {
			attempts.Add(1)
			return db.JSONMap{}, nil
		},
	}

	// Cancel before the queue starts draining
	q := New(dbc, handlers, Options{Workers: 1})
	job, err := q.Submit(ctx, db.CreateJobParams{Type: "burn"})
	require.NoError(t, err)
	ok, err := q.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	time.Sleep(300 * time.Millisecond)
	assert.EqualValues(t, 0, attempts.Load())
	assert.Equal(t, db.JobStatusCancelled, jobStatus(t, dbc, job.ID).Status)
}

func TestCancelRunningJobStopsHandler(t *testing.T) {
	dbc := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{})
	handlers := pipeline.Registry{
		"download": func(ctx context.Context, job *db.Job, r *pipeline.Reporter) (db.JSONMap, error) {
			close(started)
			<-ctx.Done()
			return nil, pipeline.E(pipeline.KindTimeout, "download", ctx.Err())
		},
	}

	q := New(dbc, handlers, Options{Workers: 1})
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	job, err := q.Submit(ctx, db.CreateJobParams{Type: "download"})
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never started")
	}

	ok, err := q.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		j := jobStatus(t, dbc, job.ID)
		return j.Status == db.JobStatusCancelled && len(q.activeIDs()) == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestStartRehydratesAndRecovers(t *testing.T) {
	dbc := newTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A pending job and an orphaned running job, as left by a crash
	pending, err := dbc.CreateJob(ctx, db.CreateJobParams{Type: "trim"})
	require.NoError(t, err)
	orphan, err := dbc.CreateJob(ctx, db.CreateJobParams{Type: "trim"})
	require.NoError(t, err)
	require.NoError(t, dbc.UpdateJobStatus(ctx, orphan.ID, db.JobStatusRunning, db.StatusUpdate{}))

	handlers := pipeline.Registry{
		"trim": func(ctx context.Context, job *db.Job, r *pipeline.Reporter) (db.JSONMap, error) {
			return db.JSONMap{}, nil
		},
	}

	q := New(dbc, handlers, Options{Workers: 2})
	require.NoError(t, q.Start(ctx))
	defer q.Stop()

	assert.Eventually(t, func() bool {
		return jobStatus(t, dbc, pending.ID).Status == db.JobStatusCompleted &&
			jobStatus(t, dbc, orphan.ID).Status == db.JobStatusCompleted
	}, 5*time.Second, 20*time.Millisecond)

	// The orphan consumed one retry on recovery
	assert.Equal(t, 1, jobStatus(t, dbc, orphan.ID).RetryCount)
}
