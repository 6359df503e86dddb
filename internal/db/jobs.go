package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrRetriesExhausted is returned by RetryJob when the retry budget is spent.
var ErrRetriesExhausted = errors.New("retries exhausted")

const jobColumns = "id, type, status, priority, project_id, video_id, input_data, output_data, progress, error_message, retry_count, max_retries, created_at, started_at, completed_at, updated_at"

func scanJob(s rowScanner) (*Job, error) {
	var j Job
	err := s.Scan(
		&j.ID, &j.Type, &j.Status, &j.Priority, &j.ProjectID, &j.VideoID,
		&j.InputData, &j.OutputData, &j.Progress, &j.ErrorMessage,
		&j.RetryCount, &j.MaxRetries, &j.CreatedAt, &j.StartedAt,
		&j.CompletedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &j, nil
}

type CreateJobParams struct {
	Type      string
	ProjectID *string
	VideoID   *string
	InputData JSONMap
	Priority  int
}

func (dbc *DatabaseConnection) CreateJob(ctx context.Context, p CreateJobParams) (*Job, error) {
	id := uuid.NewString()
	_, err := dbc.execWrite(ctx,
		`INSERT INTO jobs (id, type, status, priority, project_id, video_id, input_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, p.Type, JobStatusPending, p.Priority, p.ProjectID, p.VideoID, p.InputData,
	)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return dbc.GetJobByID(ctx, id)
}

func (dbc *DatabaseConnection) GetJobByID(ctx context.Context, id string) (*Job, error) {
	row := dbc.queryRow(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	return scanJob(row)
}

func (dbc *DatabaseConnection) scanJobs(ctx context.Context, q string, args ...any) ([]*Job, error) {
	rows, err := dbc.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// ListPendingJobs returns pending jobs in dispatch order. Used to
// rehydrate the in-memory queue after a restart.
func (dbc *DatabaseConnection) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	return dbc.scanJobs(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE status = ? ORDER BY priority DESC, created_at ASC",
		JobStatusPending)
}

func (dbc *DatabaseConnection) ListJobsByStatus(ctx context.Context, status string) ([]*Job, error) {
	return dbc.scanJobs(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE status = ? ORDER BY created_at DESC", status)
}

func (dbc *DatabaseConnection) ListJobsByProject(ctx context.Context, projectID string) ([]*Job, error) {
	return dbc.scanJobs(ctx,
		"SELECT "+jobColumns+" FROM jobs WHERE project_id = ? ORDER BY created_at DESC", projectID)
}

func (dbc *DatabaseConnection) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	q := "SELECT " + jobColumns + " FROM jobs ORDER BY created_at DESC"
	if limit > 0 {
		return dbc.scanJobs(ctx, q+" LIMIT ?", limit)
	}
	return dbc.scanJobs(ctx, q)
}

// JobFilter narrows ListJobsFiltered. A non-empty UserID scopes results
// to jobs whose project belongs to that user.
type JobFilter struct {
	Status    string
	ProjectID string
	UserID    string
	Limit     int
}

func (dbc *DatabaseConnection) ListJobsFiltered(ctx context.Context, f JobFilter) ([]*Job, error) {
	cols := make([]string, 0, 16)
	for _, c := range strings.Split(jobColumns, ", ") {
		cols = append(cols, "j."+c)
	}
	q := "SELECT " + strings.Join(cols, ", ") + " FROM jobs j"
	where := []string{}
	args := []any{}

	if f.UserID != "" {
		q += " JOIN projects p ON p.id = j.project_id"
		where = append(where, "p.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.Status != "" {
		where = append(where, "j.status = ?")
		args = append(args, f.Status)
	}
	if f.ProjectID != "" {
		where = append(where, "j.project_id = ?")
		args = append(args, f.ProjectID)
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY j.created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " LIMIT ?"
	args = append(args, limit)

	return dbc.scanJobs(ctx, q, args...)
}

// CountJobsByStatus returns job counts grouped by status.
func (dbc *DatabaseConnection) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := dbc.query(ctx, "SELECT status, COUNT(*) FROM jobs GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// StatusUpdate carries the optional fields of a status transition.
// A non-nil OutputData replaces the stored payload wholesale.
type StatusUpdate struct {
	Progress     *int
	ErrorMessage string
	OutputData   JSONMap
}

// UpdateJobStatus is the single mutation point for job state. The
// transition to running stamps started_at once; any terminal status
// stamps completed_at.
func (dbc *DatabaseConnection) UpdateJobStatus(ctx context.Context, id, status string, u StatusUpdate) error {
	set := []string{"status = ?"}
	args := []any{status}

	if u.Progress != nil {
		set = append(set, "progress = ?")
		args = append(args, *u.Progress)
	}
	if u.ErrorMessage != "" {
		set = append(set, "error_message = ?")
		args = append(args, u.ErrorMessage)
	}
	if u.OutputData != nil {
		set = append(set, "output_data = ?")
		args = append(args, u.OutputData)
	}

	switch status {
	case JobStatusRunning:
		set = append(set, "started_at = COALESCE(started_at, ?)")
		args = append(args, nowUTC())
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		set = append(set, "completed_at = ?")
		args = append(args, nowUTC())
	}

	args = append(args, id)
	_, err := dbc.execWrite(ctx,
		"UPDATE jobs SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
	return err
}

// UpdateJobProgress records handler progress without touching status.
// The status guard means a progress write racing a cancel cannot reopen
// a job that already reached a terminal state.
func (dbc *DatabaseConnection) UpdateJobProgress(ctx context.Context, id string, progress int, output JSONMap) error {
	if output != nil {
		_, err := dbc.execWrite(ctx,
			"UPDATE jobs SET progress = ?, output_data = ? WHERE id = ? AND status = ?",
			progress, output, id, JobStatusRunning)
		return err
	}
	_, err := dbc.execWrite(ctx,
		"UPDATE jobs SET progress = ? WHERE id = ? AND status = ?",
		progress, id, JobStatusRunning)
	return err
}

// CancelJob marks a job cancelled. Jobs already in a terminal state are
// left alone and false is returned.
func (dbc *DatabaseConnection) CancelJob(ctx context.Context, id string) (bool, error) {
	job, err := dbc.GetJobByID(ctx, id)
	if err != nil {
		return false, err
	}
	switch job.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return false, nil
	}
	if err := dbc.UpdateJobStatus(ctx, id, JobStatusCancelled, StatusUpdate{}); err != nil {
		return false, err
	}
	return true, nil
}

func (dbc *DatabaseConnection) DeleteJob(ctx context.Context, id string) error {
	_, err := dbc.execWrite(ctx, "DELETE FROM jobs WHERE id = ?", id)
	return err
}

// RetryJob moves a job back to pending, consuming one retry. Returns
// ErrRetriesExhausted when the budget is spent.
func (dbc *DatabaseConnection) RetryJob(ctx context.Context, id string) (*Job, error) {
	job, err := dbc.GetJobByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.RetryCount >= job.MaxRetries {
		return nil, ErrRetriesExhausted
	}

	_, err = dbc.execWrite(ctx,
		`UPDATE jobs SET status = ?, retry_count = retry_count + 1, progress = 0,
		 error_message = NULL, started_at = NULL, completed_at = NULL WHERE id = ?`,
		JobStatusPending, id)
	if err != nil {
		return nil, err
	}
	return dbc.GetJobByID(ctx, id)
}

// DeleteOldJobs removes terminal jobs whose completion is older than
// the retention window.
func (dbc *DatabaseConnection) DeleteOldJobs(ctx context.Context, days int) (int64, error) {
	return dbc.execWrite(ctx,
		`DELETE FROM jobs
		 WHERE status IN (?, ?, ?)
		 AND datetime(completed_at) < datetime('now', '-' || ? || ' days')`,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled, days)
}

// SweepOrphanedJobs handles jobs stuck in running with no worker owning
// them, as happens after a crash. Jobs whose IDs appear in active are
// legitimately held by a worker and skipped. Jobs with retry budget go
// back to pending and are returned for re-enqueueing; the rest are failed.
func (dbc *DatabaseConnection) SweepOrphanedJobs(ctx context.Context, active map[string]struct{}) (requeued []*Job, failed int, err error) {
	orphans, err := dbc.ListJobsByStatus(ctx, JobStatusRunning)
	if err != nil {
		return nil, 0, err
	}

	for _, job := range orphans {
		if _, held := active[job.ID]; held {
			continue
		}
		if job.RetryCount < job.MaxRetries {
			j, err := dbc.RetryJob(ctx, job.ID)
			if err != nil {
				return requeued, failed, err
			}
			requeued = append(requeued, j)
			continue
		}
		err := dbc.UpdateJobStatus(ctx, job.ID, JobStatusFailed, StatusUpdate{
			ErrorMessage: "job interrupted and retry budget exhausted",
		})
		if err != nil {
			return requeued, failed, err
		}
		failed++
	}
	return requeued, failed, nil
}
