package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

// Parameter extraction helpers. Params arrive as decoded JSON, so numbers
// are float64 and lists are []any.

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func requireStringParam(params map[string]any, key string) (string, error) {
	v := stringParam(params, key)
	if v == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	return v, nil
}

func intParam(params map[string]any, key string, fallback int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return fallback
	}
}

func timeParam(params map[string]any, key string) (time.Time, error) {
	raw := stringParam(params, key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: %s", ErrMissingParam, key)
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q for %s (use ISO format)", raw, key)
}

// encodeJSONList renders a string list as a JSON array for storage in a
// text column.
func encodeJSONList(items []string) string {
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func stringSliceParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
