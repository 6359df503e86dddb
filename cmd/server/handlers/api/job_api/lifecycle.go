package job_api

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/queue"
)

func HandleCancel(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}

		ok, err := q.Cancel(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return common.ErrNotFound("job not found")
			}
			slog.Error("cancel job failed", "job_id", id, "error", err)
			return common.ErrInternal("cancel failed")
		}
		if !ok {
			return common.ErrBadRequest("job is already finished")
		}
		return c.JSON(200, map[string]any{"id": id, "status": db.JobStatusCancelled})
	}
}

// HandleRetry flips a terminal job (failed, cancelled, or completed)
// back to pending and puts it straight back in the dispatch heap.
func HandleRetry(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}

		job, err := dbc.GetJobByID(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return common.ErrNotFound("job not found")
			}
			return common.ErrInternal("job lookup failed")
		}
		switch job.Status {
		case db.JobStatusPending, db.JobStatusRunning:
			return common.ErrBadRequest("cannot retry a job that is still queued or running")
		}

		retried, err := dbc.RetryJob(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, db.ErrRetriesExhausted) {
				return common.ErrBadRequest("retry budget exhausted")
			}
			slog.Error("retry job failed", "job_id", id, "error", err)
			return common.ErrInternal("retry failed")
		}
		q.Enqueue(retried)

		return c.JSON(200, map[string]any{"id": retried.ID, "status": retried.Status})
	}
}

func HandleDelete(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}

		job, err := dbc.GetJobByID(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return common.ErrNotFound("job not found")
			}
			return common.ErrInternal("job lookup failed")
		}
		switch job.Status {
		case db.JobStatusCompleted, db.JobStatusFailed, db.JobStatusCancelled:
		default:
			return common.ErrBadRequest("cannot delete a job that is still queued or running")
		}

		if err := dbc.DeleteJob(c.Request().Context(), id); err != nil {
			slog.Error("delete job failed", "job_id", id, "error", err)
			return common.ErrInternal("delete failed")
		}
		return c.JSON(200, map[string]any{"ok": true})
	}
}

func HandleQueueStats(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
			return err
		}
		stats, err := q.Stats(c.Request().Context())
		if err != nil {
			slog.Error("queue stats failed", "error", err)
			return common.ErrInternal("stats failed")
		}
		return c.JSON(200, stats)
	}
}
