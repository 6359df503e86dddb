package storage_api

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
)

// staleStageAge is how long a staged upload may sit before cleanup
// treats it as abandoned.
const staleStageAge = 24 * time.Hour

func HandleCleanup(sm *auth.SessionManager, dbc *db.DatabaseConnection, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}

		var req struct {
			Days int `json:"days"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		days := req.Days
		if days <= 0 {
			days = cfg.JobRetentionDays
		}

		deletedJobs, err := dbc.DeleteOldJobs(c.Request().Context(), days)
		if err != nil {
			slog.Error("old job cleanup failed", "error", err)
			return common.ErrInternal("cleanup failed")
		}

		staleFiles := removeStaleStageFiles(cfg)

		return c.JSON(200, map[string]any{
			"deleted_jobs":  deletedJobs,
			"deleted_files": staleFiles,
			"days":          days,
		})
	}
}

// removeStaleStageFiles clears abandoned stage_* uploads and old
// browser-staged files.
func removeStaleStageFiles(cfg *config.Config) int {
	removed := 0
	cutoff := time.Now().Add(-staleStageAge)

	for _, dir := range []string{cfg.UploadsDir, cfg.StagingDir()} {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if dir == cfg.UploadsDir && !strings.HasPrefix(e.Name(), "stage_") {
				continue
			}
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed
}
