package db

import (
	"context"
	"sync"
)

// SettingsCache provides thread-safe access to application settings so
// the download path does not hit the database for proxy and cookie
// lookups on every job.
type SettingsCache struct {
	mu     sync.RWMutex
	values map[string]string
	dbc    *DatabaseConnection
}

// NewSettingsCache creates a new settings cache and loads initial values from DB.
func NewSettingsCache(ctx context.Context, dbc *DatabaseConnection) (*SettingsCache, error) {
	values, err := dbc.AllSettings(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsCache{
		values: values,
		dbc:    dbc,
	}, nil
}

// Get returns the current value for key, or "". Safe for concurrent reads.
func (c *SettingsCache) Get(key string) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.values[key]
}

// GetBool interprets a setting as a boolean flag.
func (c *SettingsCache) GetBool(key string) bool {
	switch c.Get(key) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// Set writes through to the database and updates the cache.
func (c *SettingsCache) Set(ctx context.Context, key, value, description string) error {
	if err := c.dbc.SetSetting(ctx, key, value, description); err != nil {
		return err
	}
	c.mu.Lock()
	c.values[key] = value
	c.mu.Unlock()
	return nil
}

// Delete removes the setting from the database and the cache.
func (c *SettingsCache) Delete(ctx context.Context, key string) (bool, error) {
	removed, err := c.dbc.DeleteSetting(ctx, key)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
	return removed, nil
}

// Reload fetches fresh settings from the database and swaps the cache.
func (c *SettingsCache) Reload(ctx context.Context) error {
	values, err := c.dbc.AllSettings(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.values = values
	c.mu.Unlock()
	return nil
}
