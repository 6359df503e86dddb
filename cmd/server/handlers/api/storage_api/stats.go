// Package storage_api provides the admin storage inspection handlers.
package storage_api

import (
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v4/disk"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
)

// dirSize walks a directory tree summing file sizes. Unreadable entries
// are skipped rather than failing the whole report.
func dirSize(root string) int64 {
	var total int64
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

func HandleStats(sm *auth.SessionManager, dbc *db.DatabaseConnection, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}

		usage, err := disk.UsageWithContext(c.Request().Context(), cfg.DataDir)
		if err != nil {
			slog.Error("disk usage probe failed", "path", cfg.DataDir, "error", err)
			return common.ErrInternal("disk stats unavailable")
		}

		return c.JSON(200, map[string]any{
			"disk": map[string]any{
				"total":   usage.Total,
				"used":    usage.Used,
				"free":    usage.Free,
				"percent": usage.UsedPercent,
			},
			"app": map[string]any{
				"uploads":   dirSize(cfg.UploadsDir),
				"processed": dirSize(cfg.ProcessedDir),
				"captions":  dirSize(cfg.CaptionsDir),
			},
		})
	}
}
