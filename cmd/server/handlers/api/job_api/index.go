package job_api

import (
	"log/slog"
	"strconv"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
)

func HandleIndex(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := common.RequireSessionUser(c, sm, dbc)
		if err != nil {
			return err
		}

		filter := db.JobFilter{
			Status:    c.QueryParam("status"),
			ProjectID: c.QueryParam("project_id"),
		}
		if user.Role != db.RoleAdmin {
			filter.UserID = user.ID
		}
		if raw := c.QueryParam("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				filter.Limit = n
			}
		}

		jobs, err := dbc.ListJobsFiltered(c.Request().Context(), filter)
		if err != nil {
			slog.Error("list jobs failed", "error", err)
			return common.ErrInternal("list jobs failed")
		}
		if jobs == nil {
			jobs = []*db.Job{}
		}
		return c.JSON(200, jobs)
	}
}
