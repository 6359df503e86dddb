// Package job_api provides job submission and lifecycle handlers.
package job_api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/platform"
	"thirdcoast.systems/reframe/internal/queue"
)

func HandleDownload(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			URL        string `json:"url"`
			ProjectID  string `json:"project_id"`
			Title      string `json:"title"`
			Resolution string `json:"resolution"`
			Priority   int    `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		req.URL = strings.TrimSpace(req.URL)
		if req.URL == "" {
			return common.ErrBadRequest("url is required")
		}
		if !platform.IsValidURL(req.URL) {
			return common.ErrBadRequest("url must be a valid http(s) URL")
		}
		if req.Resolution != "" && !platform.ValidResolution(req.Resolution) {
			return common.ErrBadRequest("invalid resolution")
		}
		if req.ProjectID == "" {
			return common.ErrBadRequest("project_id is required")
		}
		if _, err := common.RequireProjectAccess(c, dbc, user, req.ProjectID); err != nil {
			return err
		}

		input := db.JSONMap{
			"project_id": req.ProjectID,
			"url":        req.URL,
		}
		if req.Title != "" {
			input["title"] = req.Title
		}
		if req.Resolution != "" {
			input["resolution"] = req.Resolution
		}

		job, err := q.Submit(c.Request().Context(), db.CreateJobParams{
			Type:      db.JobTypeDownload,
			ProjectID: &req.ProjectID,
			InputData: input,
			Priority:  req.Priority,
		})
		if err != nil {
			slog.Error("submit download failed", "error", err)
			return common.ErrInternal("failed to enqueue")
		}

		return c.JSON(200, map[string]any{"id": job.ID, "status": job.Status})
	}
}
