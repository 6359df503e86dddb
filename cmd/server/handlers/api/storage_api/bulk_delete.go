package storage_api

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
)

// containedPath resolves a user-supplied relative path against the
// allowlisted roots. The cleaned absolute result must stay inside one
// of the roots; anything else (.. escapes, absolute paths elsewhere) is
// rejected.
func containedPath(raw string, roots []string) (string, bool) {
	if raw == "" {
		return "", false
	}
	for _, root := range roots {
		candidate := raw
		if !filepath.IsAbs(candidate) {
			candidate = filepath.Join(root, candidate)
		}
		cleaned := filepath.Clean(candidate)
		if cleaned == root || strings.HasPrefix(cleaned, root+string(filepath.Separator)) {
			if cleaned == root {
				return "", false
			}
			return cleaned, true
		}
	}
	return "", false
}

func HandleBulkDelete(sm *auth.SessionManager, dbc *db.DatabaseConnection, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}

		var req struct {
			Paths []string `json:"paths"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if len(req.Paths) == 0 {
			return common.ErrBadRequest("paths is required")
		}

		roots := []string{
			filepath.Clean(cfg.UploadsDir),
			filepath.Clean(cfg.ProcessedDir),
			filepath.Clean(cfg.CaptionsDir),
		}

		deleted := 0
		rejected := []string{}
		for _, raw := range req.Paths {
			path, ok := containedPath(raw, roots)
			if !ok {
				rejected = append(rejected, raw)
				continue
			}
			if err := os.Remove(path); err != nil {
				if !os.IsNotExist(err) {
					slog.Warn("bulk delete could not remove file", "path", path, "error", err)
				}
				rejected = append(rejected, raw)
				continue
			}
			deleted++
		}

		return c.JSON(200, map[string]any{
			"deleted":  deleted,
			"rejected": rejected,
		})
	}
}
