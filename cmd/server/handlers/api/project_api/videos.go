package project_api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
)

func HandleListVideos(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}
		projectID, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}
		if _, err := common.RequireProjectAccess(c, dbc, user, projectID); err != nil {
			return err
		}

		includeDeleted := user.Role == db.RoleAdmin && c.QueryParam("include_deleted") == "true"
		videos, err := dbc.ListVideosByProject(c.Request().Context(), projectID, includeDeleted)
		if err != nil {
			slog.Error("list videos failed", "project_id", projectID, "error", err)
			return common.ErrInternal("list videos failed")
		}
		if videos == nil {
			videos = []*db.Video{}
		}
		return c.JSON(200, videos)
	}
}

func HandleGetVideo(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := loadProjectVideo(c, sm, dbc)
		if err != nil {
			return err
		}
		return c.JSON(200, video)
	}
}

func HandleUpdateVideo(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := loadProjectVideo(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			Title         *string `json:"title"`
			SourceURL     *string `json:"source_url"`
			IsClip        *bool   `json:"is_clip"`
			ParentVideoID *string `json:"parent_video_id"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}

		updated, err := dbc.UpdateVideo(c.Request().Context(), video.ID, db.VideoUpdate{
			Title:         req.Title,
			SourceURL:     req.SourceURL,
			IsClip:        req.IsClip,
			ParentVideoID: req.ParentVideoID,
		})
		if err != nil {
			slog.Error("update video failed", "video_id", video.ID, "error", err)
			return common.ErrInternal("update video failed")
		}
		return c.JSON(200, updated)
	}
}

func HandleDeleteVideo(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		video, err := loadProjectVideo(c, sm, dbc)
		if err != nil {
			return err
		}
		if err := dbc.DeleteVideo(c.Request().Context(), video.ID, false); err != nil {
			slog.Error("delete video failed", "video_id", video.ID, "error", err)
			return common.ErrInternal("delete video failed")
		}
		return c.JSON(200, map[string]any{"ok": true})
	}
}

func HandleBulkDeleteVideos(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}
		projectID, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}
		if _, err := common.RequireProjectAccess(c, dbc, user, projectID); err != nil {
			return err
		}

		var req struct {
			VideoIDs []string `json:"video_ids"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if len(req.VideoIDs) == 0 {
			return common.ErrBadRequest("video_ids is required")
		}

		// Only delete rows that actually live in this project.
		owned := make([]string, 0, len(req.VideoIDs))
		for _, id := range req.VideoIDs {
			video, err := dbc.GetVideoByID(c.Request().Context(), id)
			if err != nil {
				continue
			}
			if video.ProjectID == projectID {
				owned = append(owned, id)
			}
		}
		if len(owned) > 0 {
			if err := dbc.SoftDeleteVideos(c.Request().Context(), owned); err != nil {
				slog.Error("bulk delete videos failed", "project_id", projectID, "error", err)
				return common.ErrInternal("bulk delete failed")
			}
		}
		return c.JSON(200, map[string]any{"deleted": len(owned)})
	}
}
