package auth_api

import (
	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
)

func HandleMe(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}
		return c.JSON(200, map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		})
	}
}
