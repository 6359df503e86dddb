// Package auth_api provides passcode session handlers.
package auth_api

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
)

func HandleLogin(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req struct {
			Passcode string `json:"passcode"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		req.Passcode = strings.TrimSpace(req.Passcode)
		if req.Passcode == "" {
			return common.ErrBadRequest("passcode is required")
		}

		user, err := dbc.GetUserByPasscode(c.Request().Context(), req.Passcode)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return common.ErrUnauthorized()
			}
			slog.Error("passcode lookup failed", "error", err)
			return common.ErrInternal("login failed")
		}

		if err := sm.SaveSession(c.Response().Writer, c.Request(), user.ID, user.Username, user.Role); err != nil {
			slog.Error("failed to save session", "error", err)
			return common.ErrInternal("login failed")
		}

		return c.JSON(200, map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	}
}
