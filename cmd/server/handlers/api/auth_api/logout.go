package auth_api

import (
	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
)

func HandleLogout(sm *auth.SessionManager) echo.HandlerFunc {
	return func(c echo.Context) error {
		_ = sm.ClearSession(c.Response().Writer, c.Request())
		return c.JSON(200, map[string]any{"ok": true})
	}
}
