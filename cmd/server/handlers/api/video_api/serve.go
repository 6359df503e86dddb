// Package video_api serves stored media files.
package video_api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/internal/pipeline"
)

func contentTypeFor(path string) string {
	switch filepath.Ext(path) {
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".mov":
		return "video/quicktime"
	case ".srt":
		return "text/plain; charset=utf-8"
	case ".vtt":
		return "text/vtt"
	default:
		return "video/mp4"
	}
}

// resolveFile finds the named video file via the same search order the
// pipeline uses. The path parameter is reduced to its base name so no
// request can walk outside the managed directories.
func resolveFile(c echo.Context, sm *auth.SessionManager, dbc *db.DatabaseConnection, r *pipeline.Resolver) (string, error) {
	if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
		return "", err
	}
	name := filepath.Base(c.Param("filename"))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", common.ErrBadRequest("invalid filename")
	}
	path, ok := r.FindVideo(name)
	if !ok {
		return "", common.ErrNotFound("file not found")
	}
	return path, nil
}

// HandleServe sends a whole file in one response.
func HandleServe(sm *auth.SessionManager, dbc *db.DatabaseConnection, r *pipeline.Resolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		path, err := resolveFile(c, sm, dbc, r)
		if err != nil {
			return err
		}
		c.Response().Header().Set("Content-Type", contentTypeFor(path))
		return c.File(path)
	}
}

// HandleStream serves with Range support so players can seek.
func HandleStream(sm *auth.SessionManager, dbc *db.DatabaseConnection, r *pipeline.Resolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		path, err := resolveFile(c, sm, dbc, r)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return common.ErrNotFound("file not found")
		}
		defer f.Close()

		c.Response().Header().Set("Content-Type", contentTypeFor(path))
		c.Response().Header().Set("Cache-Control", "private, no-cache")
		c.Response().Header().Set("Accept-Ranges", "bytes")

		http.ServeContent(c.Response(), c.Request(), filepath.Base(path), time.Time{}, f)
		return nil
	}
}

// HandleCaption serves a caption file from the captions directory.
func HandleCaption(sm *auth.SessionManager, dbc *db.DatabaseConnection, r *pipeline.Resolver) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
			return err
		}
		name := filepath.Base(c.Param("filename"))
		path := r.CaptionPath(name)
		if _, err := os.Stat(path); err != nil {
			return common.ErrNotFound("caption not found")
		}
		c.Response().Header().Set("Content-Type", contentTypeFor(path))
		return c.File(path)
	}
}
