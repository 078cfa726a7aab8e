package h5schema

import "fmt"

// valueEqual compares an instance value with a schema constant the way a
// dynamically typed reader would: numeric values compare by magnitude
// across integer widths and floats, byte strings compare as text.
func valueEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		bf, ok := asFloat(b)
		return ok && af == bf
	}
	if as, ok := asText(a); ok {
		bs, ok := asText(b)
		return ok && as == bs
	}
	if ab, ok := a.(bool); ok {
		bb, ok := b.(bool)
		return ok && ab == bb
	}
	return a == b
}

// valueIn reports whether v compares equal to any member of set.
func valueIn(v any, set []any) bool {
	for _, allowed := range set {
		if valueEqual(v, allowed) {
			return true
		}
	}
	return false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func asText(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}

// renderValue formats a value for error messages.
func renderValue(v any) string {
	return fmt.Sprintf("%v", v)
}
