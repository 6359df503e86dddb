package job_api

import (
	"errors"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
)

func HandleStatus(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireSessionUser(c, sm, dbc); err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "job_id")
		if err != nil {
			return err
		}

		job, err := dbc.GetJobByID(c.Request().Context(), id)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return c.JSON(404, map[string]any{"status": "not_found"})
			}
			return common.ErrInternal("job lookup failed")
		}
		return c.JSON(200, job)
	}
}
