package common

import (
	"errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/internal/db"
)

// RequireIDParam extracts a UUID route parameter or returns a 400 error.
func RequireIDParam(c echo.Context, param string) (string, error) {
	id := c.Param(param)
	if _, err := uuid.Parse(id); err != nil {
		return "", ErrBadRequest("invalid " + param)
	}
	return id, nil
}

// RequireSessionUser loads the session's user row. Returns 401 when the
// session is missing or the user no longer exists.
func RequireSessionUser(c echo.Context, sm *auth.SessionManager, dbc *db.DatabaseConnection) (*db.User, error) {
	userID, _, err := sm.GetSession(c.Request())
	if err != nil {
		return nil, ErrUnauthorized()
	}
	user, err := dbc.GetUserByID(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			sm.ClearSession(c.Response().Writer, c.Request())
			return nil, ErrUnauthorized()
		}
		return nil, ErrInternal("session lookup failed")
	}
	return user, nil
}

// RequireAdmin is RequireSessionUser plus a role check.
func RequireAdmin(c echo.Context, sm *auth.SessionManager, dbc *db.DatabaseConnection) (*db.User, error) {
	user, err := RequireSessionUser(c, sm, dbc)
	if err != nil {
		return nil, err
	}
	if user.Role != db.RoleAdmin {
		return nil, ErrForbidden()
	}
	return user, nil
}

// RequireProjectAccess loads a project and checks the caller may touch
// it: admins see everything, users only their own projects.
func RequireProjectAccess(c echo.Context, dbc *db.DatabaseConnection, user *db.User, projectID string) (*db.Project, error) {
	project, err := dbc.GetProjectByID(c.Request().Context(), projectID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrNotFound("project not found")
		}
		return nil, ErrInternal("project lookup failed")
	}
	if user.Role != db.RoleAdmin && project.UserID != nil && *project.UserID != user.ID {
		return nil, ErrForbidden()
	}
	return project, nil
}

// DerefString safely dereferences a *string, returning "" if nil.
func DerefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
