// Package settings_api provides the admin settings handlers.
package settings_api

import (
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"

	"thirdcoast.systems/reframe/cmd/server/auth"
	"thirdcoast.systems/reframe/cmd/server/handlers/common"
	"thirdcoast.systems/reframe/internal/db"
	"thirdcoast.systems/reframe/pkg/encryption"
)

// HandleGet returns all settings. The stored cookie blob is never sent
// back; only its presence is reported.
func HandleGet(sm *auth.SessionManager, dbc *db.DatabaseConnection) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}

		all, err := dbc.AllSettings(c.Request().Context())
		if err != nil {
			slog.Error("list settings failed", "error", err)
			return common.ErrInternal("settings unavailable")
		}

		out := map[string]any{}
		for k, v := range all {
			if k == db.SettingFetcherCookies {
				continue
			}
			out[k] = v
		}
		_, hasCookies := all[db.SettingFetcherCookies]
		out["fetcher_cookies_set"] = hasCookies

		return c.JSON(200, out)
	}
}

// HandleUpdate upserts the posted settings map. Cookies are sealed with
// the encryption manager before touching the database; posting them
// without a configured key is rejected.
func HandleUpdate(sm *auth.SessionManager, dbc *db.DatabaseConnection, settings *db.SettingsCache, crypto *encryption.Manager) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := common.RequireAdmin(c, sm, dbc); err != nil {
			return err
		}

		var req map[string]any
		if err := c.Bind(&req); err != nil {
			return common.ErrBadRequest("invalid json")
		}
		if len(req) == 0 {
			return common.ErrBadRequest("no settings provided")
		}

		ctx := c.Request().Context()
		for key, raw := range req {
			value := fmt.Sprintf("%v", raw)

			if key == db.SettingFetcherCookies {
				if value == "" {
					if _, err := settings.Delete(ctx, key); err != nil {
						return common.ErrInternal("settings update failed")
					}
					continue
				}
				if crypto == nil {
					return common.ErrBadRequest("cookies cannot be stored without ENCRYPTION_KEY")
				}
				sealed, err := crypto.SealString(value)
				if err != nil {
					slog.Error("cookie encryption failed", "error", err)
					return common.ErrInternal("settings update failed")
				}
				value = sealed
			}

			if err := settings.Set(ctx, key, value, ""); err != nil {
				slog.Error("setting update failed", "key", key, "error", err)
				return common.ErrInternal("settings update failed")
			}
		}

		return c.JSON(200, map[string]any{"ok": true})
	}
}
