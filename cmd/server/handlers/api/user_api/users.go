// Package user_api provides the admin user-management handlers.
package user_api

import (
	"crypto/rand"
	"encoding/hex"
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
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}
		users, err := dbc.ListUsers(c.Request().Context())
		if err != nil {
			slog.Error("list users failed", "error", err)
			return common.ErrInternal("list users failed")
		}

		out := make([]map[string]any, 0, len(users))
		for _, u := range users {
			out = append(out, map[string]any{
				"id":         u.ID,
				"username":   u.Username,
				"role":       u.Role,
				"created_at": u.CreatedAt,
			})
		}
		return c.JSON(200, out)
	}
}

func HandleCreate(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}

		var req struct {
			Username string `json:"username"`
			Passcode string `json:"passcode"`
			Role     string `json:"role"`
		}
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" {
			return common.ErrBadRequest("username is required")
		}
		switch req.Role {
		case "", db.RoleUser, db.RoleAdmin:
		default:
			return common.ErrBadRequest("role must be admin or user")
		}
		if req.Passcode == "" {
			req.Passcode = generatePasscode()
		}

		user, err := dbc.CreateUser(c.Request().Context(), req.Username, req.Passcode, req.Role)
		if err != nil {
			if errors.Is(err, db.ErrConflict) {
				return common.ErrBadRequest("username or passcode already in use")
			}
			slog.Error("create user failed", "error", err)
			return common.ErrInternal("create user failed")
		}

		// The passcode is returned exactly once, at creation.
		return c.JSON(201, map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"passcode": user.Passcode,
			"role":     user.Role,
		})
	}
}

func HandleDelete(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		caller, err := common.RequireAdmin(c, sm, dbc)
		if err != nil {
			return err
		}
		id, err := common.RequireIDParam(c, "id")
		if err != nil {
			return err
		}
		if id == caller.ID {
			return common.ErrBadRequest("cannot delete your own account")
		}
		if _, err := dbc.GetUserByID(c.Request().Context(), id); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				return common.ErrNotFound("user not found")
			}
			return common.ErrInternal("user lookup failed")
		}
		if err := dbc.SoftDeleteUser(c.Request().Context(), id); err != nil {
			slog.Error("delete user failed", "user_id", id, "error", err)
			return common.ErrInternal("delete user failed")
		}
		return c.JSON(200, map[string]any{"ok": true})
	}
}

func generatePasscode() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}
