// Package project_api provides project CRUD handlers.
package project_api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
)

func HandleList(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}

		scope := user.ID
		if user.Role == db.RoleAdmin {
			scope = ""
		}
		includeDeleted := user.Role == db.RoleAdmin && c.QueryParam("include_deleted") == "true"
		projects, err := dbc.ListProjects(c.Request().Context(), scope, includeDeleted)
		if err != nil {
			slog.Error("list projects failed", "error", err)
			return common.ErrInternal("list projects failed")
		}
		if projects == nil {
			projects = []*db.Project{}
		}
		return c.JSON(200, projects)
	}
}

func HandleCreate(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}

		var req struct {
			Name        string  `json:"name"`
			Description *string `json:"description"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			return common.ErrBadRequest("name is required")
		}

		project, err := dbc.CreateProject(c.Request().Context(), req.Name, &user.ID, req.Description)
		if err != nil {
			slog.Error("create project failed", "error", err)
			return common.ErrInternal("create project failed")
		}
		return c.JSON(201, project)
	}
}

func HandleGet(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}
		project, err := common.RequireProjectAccess(c, dbc, user, id)
		if err != nil {
			return err
		}
		return c.JSON(200, project)
	}
}

func HandleUpdate(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}
		if _, err := common.RequireProjectAccess(c, dbc, user, id); err != nil {
			return err
		}

		var req struct {
			Name        *string `json:"name"`
			Description *string `json:"description"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
			return common.ErrBadRequest("name cannot be empty")
		}

		project, err := dbc.UpdateProject(c.Request().Context(), id, req.Name, req.Description)
		if err != nil {
			slog.Error("update project failed", "project_id", id, "error", err)
			return common.ErrInternal("update project failed")
		}
		return c.JSON(200, project)
	}
}

func HandleDelete(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}
		if _, err := common.RequireProjectAccess(c, dbc, user, id); err != nil {
			return err
		}
		if err := dbc.DeleteProject(c.Request().Context(), id, false); err != nil {
			slog.Error("delete project failed", "project_id", id, "error", err)
			return common.ErrInternal("delete project failed")
		}
		return c.JSON(200, map[string]any{"ok": true})
	}
}

// loadProjectVideo resolves the :id/:vid pair, checking both project
// access and that the video actually belongs to that project.
func loadProjectVideo(c echo.Context, sm *auth.SessionManager, dbc *db.DatabaseConnection) (*db.Video, error) {
	user, err := common.RequireSessionUser(c, sm, dbc)
	if err != nil {
		return nil, err
	}
	projectID, err := common.RequireIDParam(c, "id")
	if err != nil {
		return nil, err
	}
	videoID, err := common.RequireIDParam(c, "vid")
	if err != nil {
		return nil, err
	}
	if _, err := common.RequireProjectAccess(c, dbc, user, projectID); err != nil {
		return nil, err
	}

	video, err := dbc.GetVideoByID(c.Request().Context(), videoID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, common.ErrNotFound("video not found")
		}
		return nil, common.ErrInternal("video lookup failed")
	}
	if video.ProjectID != projectID {
		return nil, common.ErrNotFound("video not found")
	}
	return video, nil
}
