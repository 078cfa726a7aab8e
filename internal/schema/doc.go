// Package schema holds the compiled schema node model: a tree of group,
// dataset, and reference nodes built once from a plain nested-map schema
// document and immutable thereafter, except for reference memoization.
package schema

import "sort"

// Document field coercion helpers. Schema documents arrive as map[string]any
// from a YAML/JSON decoder or hand-built Go literals, so numeric fields may
// be int, int64, uint64, or float64.

func docMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func docList(v any) ([]any, bool) {
	l, ok := v.([]any)
	return l, ok
}

func docString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func docInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func docBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func docStringSlice(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return l, true
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			s, ok := docString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

func docIntSlice(v any) ([]int, bool) {
	switch l := v.(type) {
	case []int:
		return append([]int(nil), l...), true
	case []any:
		out := make([]int, 0, len(l))
		for _, item := range l {
			n, ok := docInt(item)
			if !ok {
				return nil, false
			}
			out = append(out, n)
		}
		return out, true
	default:
		return nil, false
	}
}

// sortedKeys returns the map keys in lexical order so node construction and
// error reporting are deterministic regardless of map iteration order.
func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
