package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/pipeline"
	"thirdcoast.systems/reframe/pkg/utils/format"
)

// runWorker is the main loop of one worker goroutine. It drains the
// heap whenever woken, and polls once a second as a safety net.
func (q *Queue) runWorker(ctx context.Context, workerID int) {
	defer q.wg.Done()

	log := slog.With("worker", workerID)
	log.Info("Worker started")

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("Worker stopped")
			return
		case <-q.wake:
		case <-ticker.C:
		}

		for {
			jobID, ok := q.pop()
			if !ok {
				break
			}
			q.process(ctx, log, jobID)
			if ctx.Err() != nil {
				log.Info("Worker stopped")
				return
			}
		}
	}
}

func (q *Queue) process(ctx context.Context, log *slog.Logger, jobID string) {
	job, err := q.dbc.GetJobByID(ctx, jobID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) && ctx.Err() == nil {
			log.Error("Failed to load job", "job_id", jobID, "error", err)
		}
		return
	}

	// Cancelled while waiting in the heap
	if job.Status == db.JobStatusCancelled {
		log.Info("Skipping cancelled job", "job_id", jobID)
		return
	}

	zero := 0
	if err := q.dbc.UpdateJobStatus(ctx, jobID, db.JobStatusRunning, db.StatusUpdate{Progress: &zero}); err != nil {
		log.Error("Failed to mark job running", "job_id", jobID, "error", err)
		return
	}
	log.Info("Processing job", "job_id", jobID, "type", job.Type)

	handler, ok := q.handlers[job.Type]
	if !ok {
		q.fail(ctx, log, job, pipeline.Errorf(pipeline.KindFatal, "dispatch",
			"no handler registered for job type: %s", job.Type))
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	q.active[jobID] = cancel
	q.mu.Unlock()
	defer func() {
		cancel()
		q.mu.Lock()
		delete(q.active, jobID)
		q.mu.Unlock()
	}()

	start := time.Now()
	result, err := handler(jobCtx, job, pipeline.NewReporter(q.dbc, jobID))
	if err != nil {
		q.handleFailure(ctx, log, job, err)
		return
	}

	hundred := 100
	if result == nil {
		result = db.JSONMap{}
	}
	if err := q.dbc.UpdateJobStatus(ctx, jobID, db.JobStatusCompleted, db.StatusUpdate{
		Progress:   &hundred,
		OutputData: result,
	}); err != nil {
		log.Error("Failed to mark job completed", "job_id", jobID, "error", err)
		return
	}
	log.Info("Job completed", "job_id", jobID, "type", job.Type,
		"duration", format.JobDuration(time.Since(start)))
}

// handleFailure records the error and, when the failure class allows it
// and budget remains, puts the job straight back into the heap.
func (q *Queue) handleFailure(ctx context.Context, log *slog.Logger, job *db.Job, jobErr error) {
	// A user cancel kills the job context; leave the cancelled status alone.
	fresh, err := q.dbc.GetJobByID(ctx, job.ID)
	if err == nil && fresh.Status == db.JobStatusCancelled {
		log.Info("Job cancelled mid-flight", "job_id", job.ID)
		return
	}

	log.Error("Job failed", "job_id", job.ID, "type", job.Type, "error", jobErr)
	if err := q.dbc.UpdateJobStatus(ctx, job.ID, db.JobStatusFailed, db.StatusUpdate{
		ErrorMessage: jobErr.Error(),
	}); err != nil {
		log.Error("Failed to mark job failed", "job_id", job.ID, "error", err)
		return
	}

	if !pipeline.Retryable(jobErr) {
		return
	}

	retried, err := q.dbc.RetryJob(ctx, job.ID)
	if err != nil {
		if !errors.Is(err, db.ErrRetriesExhausted) && ctx.Err() == nil {
			log.Error("Failed to retry job", "job_id", job.ID, "error", err)
		}
		return
	}
	q.enqueue(retried)
	log.Info("Job requeued for retry", "job_id", job.ID, "attempt", retried.RetryCount, "max", retried.MaxRetries)
}

func (q *Queue) fail(ctx context.Context, log *slog.Logger, job *db.Job, jobErr error) {
	log.Error("Job failed", "job_id", job.ID, "type", job.Type, "error", jobErr)
	if err := q.dbc.UpdateJobStatus(ctx, job.ID, db.JobStatusFailed, db.StatusUpdate{
		ErrorMessage: jobErr.Error(),
	}); err != nil {
		log.Error("Failed to mark job failed", "job_id", job.ID, "error", err)
	}
}
