package normalize

import (
	"strconv"
	"strings"
)

// asString renders a decoded value as its canonical string form. Large
// numeric identifiers travel as strings to avoid precision loss in
// consumers that parse JSON into float64.
func asString(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case uint64:
		return strconv.FormatUint(n, 10)
	case int64:
		return strconv.FormatInt(n, 10)
	case int:
		return strconv.Itoa(n)
	default:
		return ""
	}
}

// asInt coerces a decoded value to an int, tolerating the numeric-as-string
// fields the platform is fond of.
func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case uint64:
		return int(n)
	case int:
		return n
	case bool:
		if n {
			return 1
		}
		return 0
	case string:
		parsed, err := strconv.Atoi(n)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func asBool(v any) bool {
	switch n := v.(type) {
	case bool:
		return n
	case int64:
		return n != 0
	case uint64:
		return n != 0
	case int:
		return n != 0
	default:
		return false
	}
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func asList(v any) []any {
	l, _ := v.([]any)
	return l
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), substr)
}

// merge copies every key of src into dst, overwriting on collision.
// All flattening in this package is shallow-overwrite, later merge wins.
func merge(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
