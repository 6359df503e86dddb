// Package browser_api integrates the remote-browser companion: listing
// files it staged and importing them as project videos.
package browser_api

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/config"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/utils/filename"
)

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".webm": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".flv": {},
}

type stagedFile struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"size_human"`
	Modified    string `json:"modified"`
}

func listStaged(dir string) []stagedFile {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var files []stagedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "raw_") {
			continue
		}
		if _, ok := videoExtensions[strings.ToLower(filepath.Ext(name))]; !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, stagedFile{
			Name:        name,
			DisplayName: filename.StripStagePrefix(name),
			Path:        filepath.Join(dir, name),
			Size:        info.Size(),
			SizeHuman:   humanize.Bytes(uint64(info.Size())),
			Modified:    info.ModTime().UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return files
}

func HandleStaged(sm *auth.SessionManager, dbc *db.DatabaseConnection, cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
			return err
		}

		files := []stagedFile{}
		files = append(files, listStaged(cfg.StagingDir())...)
		files = append(files, listStaged(cfg.UploadsDir)...)

		return c.JSON(200, map[string]any{"files": files, "count": len(files)})
	}
}
