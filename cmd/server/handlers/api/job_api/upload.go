package job_api

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/queue"
	"thirdcoast.systems/reframe/pkg/utils/filename"
)

// HandleUpload stages a multipart file into uploads/ and submits an
// upload job that imports it onto the canonical canvas.
func HandleUpload(sm *auth.SessionManager, dbc *db.DatabaseConnection, q *queue.Queue, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}

		projectID := c.FormValue("project_id")
		if projectID == "" {
			return common.ErrBadRequest("project_id is required")
		}
		if _, err := common.RequireProjectAccess(c, dbc, user, projectID); err != nil {
			return err
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return common.ErrBadRequest("file is required")
		}

		src, err := fh.Open()
		if err != nil {
			return common.ErrBadRequest("could not read upload")
		}
		defer src.Close()

		// Stage under a fresh name so concurrent uploads of the same
		// file cannot collide.
		staged := "stage_" + uuid.NewString() + "_" + filename.Sanitize(fh.Filename)
		stagedPath := filepath.Join(cfg.UploadsDir, staged)
		dst, err := os.Create(stagedPath)
		if err != nil {
			slog.Error("could not create staged file", "path", stagedPath, "error", err)
			return common.ErrInternal("upload failed")
		}
		if _, err := io.Copy(dst, src); err != nil {
			dst.Close()
			os.Remove(stagedPath)
			slog.Error("could not write staged file", "path", stagedPath, "error", err)
			return common.ErrInternal("upload failed")
		}
		if err := dst.Close(); err != nil {
			os.Remove(stagedPath)
			return common.ErrInternal("upload failed")
		}

		title := c.FormValue("title")
		input := db.JSONMap{
			"project_id": projectID,
			"filename":   staged,
		}
		if title != "" {
			input["title"] = title
		}

		job, err := q.Submit(c.Request().Context(), db.CreateJobParams{
			Type:      db.JobTypeUpload,
			ProjectID: &projectID,
			InputData: input,
		})
		if err != nil {
			os.Remove(stagedPath)
			slog.Error("submit upload failed", "error", err)
			return common.ErrInternal("failed to enqueue")
		}

		return c.JSON(200, map[string]any{"id": job.ID, "status": job.Status})
	}
}
