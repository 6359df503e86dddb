package browser_api

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/queue"
)

// HandleImport turns a staged browser download into a browser_import
// job. The filename must match a file the staged listing would show.
func HandleImport(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			Filename  string `json:"filename"`
			ProjectID string `json:"project_id"`
			Title     string `json:"title"`
			Priority  int    `json:"priority"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if req.Filename == "" {
			return common.ErrBadRequest("filename is required")
		}
		if req.ProjectID == "" {
			return common.ErrBadRequest("project_id is required")
		}
		if _, err := common.RequireProjectAccess(c, dbc, user, req.ProjectID); err != nil {
			return err
		}

		name := filepath.Base(req.Filename)
		tempPath := filepath.Join(cfg.StagingDir(), name)
		if _, err := os.Stat(tempPath); err != nil {
			tempPath = filepath.Join(cfg.UploadsDir, name)
			if _, err := os.Stat(tempPath); err != nil {
				return common.ErrNotFound("staged file not found")
			}
		}

		input := db.JSONMap{
			"project_id":    req.ProjectID,
			"temp_path":     tempPath,
			"original_name": name,
		}
		if req.Title != "" {
			input["title"] = req.Title
		}

		job, err := q.Submit(c.Request().Context(), db.CreateJobParams{
			Type:      db.JobTypeBrowserImport,
			ProjectID: &req.ProjectID,
			InputData: input,
			Priority:  req.Priority,
		})
		if err != nil {
			slog.Error("submit browser import failed", "error", err)
			return common.ErrInternal("failed to enqueue")
		}

		return c.JSON(200, map[string]any{"id": job.ID, "status": job.Status})
	}
}
