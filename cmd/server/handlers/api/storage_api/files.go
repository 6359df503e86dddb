package storage_api

import (
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
)

type fileEntry struct {
	Name      string `json:"name"`
	Dir       string `json:"dir"`
	Size      int64  `json:"size"`
	SizeHuman string `json:"size_human"`
	Modified  string `json:"modified"`
}

func listDir(root, label string) []fileEntry {
	var entries []fileEntry
	filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = d.Name()
		}
		entries = append(entries, fileEntry{
			Name:      rel,
			Dir:       label,
			Size:      info.Size(),
			SizeHuman: humanize.Bytes(uint64(info.Size())),
			Modified:  info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
		return nil
	})
	return entries
}

func HandleFiles(sm *auth.SessionManager, dbc *db.DatabaseConnection, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}

		files := []fileEntry{}
		files = append(files, listDir(cfg.UploadsDir, "uploads")...)
		files = append(files, listDir(cfg.ProcessedDir, "processed")...)
		files = append(files, listDir(cfg.CaptionsDir, "captions")...)

		return c.JSON(200, map[string]any{"files": files, "count": len(files)})
	}
}
