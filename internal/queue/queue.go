// Package queue runs the durable job queue: an in-memory priority heap
// fronting the jobs table, drained by a fixed worker pool. The database
// is the source of truth; the heap only decides dispatch order, so a
// restart rebuilds it from pending rows without losing work.
package queue

import (
	"container/heap"
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/pipeline"
)

const (
	orphanSweepInterval = 2 * time.Minute
	retentionInterval   = 24 * time.Hour
)

type Options struct {
	Workers       int
	RetentionDays int
}

type Queue struct {
	dbc      *db.DatabaseConnection
	handlers pipeline.Registry
	opts     Options

	mu     sync.Mutex
	heap   jobHeap
	seq    uint64
	active map[string]context.CancelFunc

	wake    chan struct{}
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	started bool
}

func New(dbc *db.DatabaseConnection, handlers pipeline.Registry, opts Options) *Queue {
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.RetentionDays < 1 {
		opts.RetentionDays = 30
	}
	return &Queue{
		dbc:      dbc,
		handlers: handlers,
		opts:     opts,
		active:   map[string]context.CancelFunc{},
		wake:     make(chan struct{}, 1),
	}
}

// Start recovers interrupted work, rehydrates pending jobs into the
// heap, and launches the worker pool plus the maintenance loop.
func (q *Queue) Start(ctx context.Context) error {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return errors.New("queue already started")
	}
	q.started = true
	q.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	if err := q.sweepOrphans(runCtx); err != nil {
		return err
	}

	pending, err := q.dbc.ListPendingJobs(runCtx)
	if err != nil {
		return err
	}
	for _, job := range pending {
		q.enqueue(job)
	}
	if len(pending) > 0 {
		slog.Info("Rehydrated pending jobs", "count", len(pending))
	}

	for i := 1; i <= q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.runWorker(runCtx, i)
	}

	q.wg.Add(1)
	go q.runMaintenance(runCtx)

	slog.Info("Job queue started", "workers", q.opts.Workers)
	return nil
}

// Stop signals workers to finish their current job and waits for them.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.started = false
	q.mu.Unlock()

	q.cancel()
	q.wg.Wait()
	slog.Info("Job queue stopped")
}

// Submit persists a new job and makes it dispatchable.
func (q *Queue) Submit(ctx context.Context, params db.CreateJobParams) (*db.Job, error) {
	job, err := q.dbc.CreateJob(ctx, params)
	if err != nil {
		return nil, err
	}
	q.enqueue(job)
	slog.Info("Submitted job", "job_id", job.ID, "type", job.Type, "priority", job.Priority)
	return job, nil
}

// Enqueue pushes an already-persisted pending job into the heap. Used
// by the retry endpoint after RetryJob flips the row back to pending.
func (q *Queue) Enqueue(job *db.Job) {
	q.enqueue(job)
}

func (q *Queue) enqueue(job *db.Job) {
	q.mu.Lock()
	q.seq++
	heap.Push(&q.heap, heapItem{
		jobID:     job.ID,
		priority:  job.Priority,
		createdAt: job.CreatedAt,
		seq:       q.seq,
	})
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *Queue) pop() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.heap.Len() == 0 {
		return "", false
	}
	item := heap.Pop(&q.heap).(heapItem)
	return item.jobID, true
}

// Cancel marks the job cancelled and, when a worker holds it, cancels
// that worker's job context so child processes die promptly.
func (q *Queue) Cancel(ctx context.Context, jobID string) (bool, error) {
	ok, err := q.dbc.CancelJob(ctx, jobID)
	if err != nil || !ok {
		return ok, err
	}

	q.mu.Lock()
	cancel := q.active[jobID]
	q.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return true, nil
}

func (q *Queue) activeIDs() map[string]struct{} {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make(map[string]struct{}, len(q.active))
	for id := range q.active {
		ids[id] = struct{}{}
	}
	return ids
}

func (q *Queue) sweepOrphans(ctx context.Context) error {
	requeued, failed, err := q.dbc.SweepOrphanedJobs(ctx, q.activeIDs())
	if err != nil {
		return err
	}
	for _, job := range requeued {
		q.enqueue(job)
	}
	if len(requeued) > 0 || failed > 0 {
		slog.Info("Swept orphaned jobs", "requeued", len(requeued), "failed", failed)
	}
	return nil
}

func (q *Queue) runMaintenance(ctx context.Context) {
	defer q.wg.Done()

	sweep := time.NewTicker(orphanSweepInterval)
	defer sweep.Stop()
	retention := time.NewTicker(retentionInterval)
	defer retention.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if err := q.sweepOrphans(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Orphan sweep failed", "error", err)
			}
		case <-retention.C:
			n, err := q.dbc.DeleteOldJobs(ctx, q.opts.RetentionDays)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("Job retention cleanup failed", "error", err)
				}
				continue
			}
			if n > 0 {
				slog.Info("Deleted old jobs", "count", n, "retention_days", q.opts.RetentionDays)
				if err := q.dbc.Analyze(ctx); err != nil {
					slog.Warn("ANALYZE after retention failed", "error", err)
				}
			}
		}
	}
}

// Stats reports queue health for the monitoring endpoint.
func (q *Queue) Stats(ctx context.Context) (db.JSONMap, error) {
	counts, err := q.dbc.CountJobsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	q.mu.Lock()
	queued := q.heap.Len()
	running := len(q.active)
	started := q.started
	q.mu.Unlock()

	return db.JSONMap{
		"num_workers": q.opts.Workers,
		"queue_size":  queued,
		"active_jobs": running,
		"started":     started,
		"status_counts": map[string]any{
			db.JobStatusPending:   counts[db.JobStatusPending],
			db.JobStatusRunning:   counts[db.JobStatusRunning],
			db.JobStatusCompleted: counts[db.JobStatusCompleted],
			db.JobStatusFailed:    counts[db.JobStatusFailed],
			db.JobStatusCancelled: counts[db.JobStatusCancelled],
		},
	}, nil
}
