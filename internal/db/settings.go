package db

import (
	"context"
	"database/sql"
	"errors"
)

// Well-known setting keys.
const (
	SettingProxyURL       = "proxy_url"
	SettingProxyEnabled   = "proxy_enabled"
	SettingFetcherCookies = "fetcher_cookies"
)

// GetSetting returns the raw value for key, or "" and false when unset.
func (dbc *DatabaseConnection) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	row := dbc.queryRow(ctx, "SELECT value FROM settings WHERE key = ?", key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

// SetSetting upserts a setting value.
func (dbc *DatabaseConnection) SetSetting(ctx context.Context, key, value, description string) error {
	var desc *string
	if description != "" {
		desc = &description
	}
	_, err := dbc.execWrite(ctx,
		`INSERT INTO settings (key, value, description) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value,
		   description = COALESCE(excluded.description, description),
		   updated_at = CURRENT_TIMESTAMP`,
		key, value, desc)
	return err
}

func (dbc *DatabaseConnection) DeleteSetting(ctx context.Context, key string) (bool, error) {
	n, err := dbc.execWrite(ctx, "DELETE FROM settings WHERE key = ?", key)
	return n > 0, err
}

// AllSettings returns every setting as a key/value map.
func (dbc *DatabaseConnection) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := dbc.query(ctx, "SELECT key, value FROM settings")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		settings[k] = v
	}
	return settings, rows.Err()
}
