package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONMap stores a loosely-typed JSON object in a TEXT column. Job
// inputs and outputs and caption styles all use this shape.
type JSONMap map[string]any

// Scan implements sql.Scanner for reading from the database.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("db.JSONMap.Scan: expected []byte or string, got %T", value)
	}
}

// Value implements driver.Valuer for writing to the database.
// A nil map is stored as NULL, matching columns that are absent
// rather than empty.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// String returns a string map value, or "" when missing or not a string.
func (m JSONMap) String(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
