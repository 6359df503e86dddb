package pipeline

import "thirdcoast.systems/reframe/internal/db"

// Input readers tolerate the types JSON decoding actually produces.

func inputString(m db.JSONMap, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if s, ok := m[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

func inputFloat(m db.JSONMap, key string, fallback float64) float64 {
	if m == nil {
		return fallback
	}
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return fallback
	}
}

func inputInt(m db.JSONMap, key string, fallback int) int {
	return int(inputFloat(m, key, float64(fallback)))
}

func inputBool(m db.JSONMap, key string, fallback bool) bool {
	if m == nil {
		return fallback
	}
	if b, ok := m[key].(bool); ok {
		return b
	}
	return fallback
}

func inputMap(m db.JSONMap, key string) db.JSONMap {
	if m == nil {
		return nil
	}
	if sub, ok := m[key].(map[string]any); ok {
		return db.JSONMap(sub)
	}
	return nil
}
