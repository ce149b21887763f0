package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringArg returns a non-empty string argument.
func StringArg(args map[string]any, key string) (string, bool) {
	v, ok := args[key].(string)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// IntArg returns an integer argument, or def when absent. Models send numbers
// as JSON floats and occasionally as strings.
func IntArg(args map[string]any, key string, def int) (int, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case int:
		return checkInt32(key, int64(v))
	case int64:
		return checkInt32(key, v)
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a whole number, got %v", key, v)
		}
		if v < math.MinInt32 || v > math.MaxInt32 {
			return 0, fmt.Errorf("%s is out of range, got %v", key, v)
		}
		return int(v), nil
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number, got %s", key, v)
		}
		return checkInt32(key, n)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return def, nil
		}
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number, got %q", key, v)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s must be a number", key)
	}
}

// IntArgInRange is IntArg limited to [lo, hi].
func IntArgInRange(args map[string]any, key string, def, lo, hi int) (int, error) {
	n, err := IntArg(args, key, def)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("%s must be between %d and %d, got %d", key, lo, hi, n)
	}
	return n, nil
}

func checkInt32(key string, n int64) (int, error) {
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%s is out of range, got %d", key, n)
	}
	return int(n), nil
}

// StringSliceArg parses a parameter that can be an array of strings, a single
// string, or a comma-separated string. The bool result reports whether the
// argument was present at all.
func StringSliceArg(args map[string]any, key string) ([]string, bool, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, false, nil
	}

	var result []string
	switch v := raw.(type) {
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				result = append(result, part)
			}
		}
	case []string:
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				result = append(result, s)
			}
		}
	case []any:
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, true, fmt.Errorf("%s[%d] must be a string", key, i)
			}
			if s = strings.TrimSpace(s); s != "" {
				result = append(result, s)
			}
		}
	default:
		return nil, true, fmt.Errorf("%s must be a string or array of strings", key)
	}

	return result, true, nil
}
