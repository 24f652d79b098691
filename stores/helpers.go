package stores

import (
	"fmt"
	"strings"
	"time"

	"github.com/oarkflow/date"
)

func parseFlexibleTime(s string) (time.Time, error) {
	return date.Parse(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(v any) bool {
	switch n := v.(type) {
	case int64:
		return n != 0
	case int:
		return n != 0
	case bool:
		return n
	}
	return false
}

// namedInClause expands ids into ":p0, :p1, ..." placeholders plus their
// parameter map, for batched IN queries with named bindings.
func namedInClause(ids []string) (string, map[string]any) {
	names := make([]string, len(ids))
	params := make(map[string]any, len(ids))
	for i, id := range ids {
		name := fmt.Sprintf("p%d", i)
		names[i] = ":" + name
		params[name] = id
	}
	return strings.Join(names, ", "), params
}

func scanTime(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		if t, err := parseFlexibleTime(v); err == nil {
			return t
		}
	case []byte:
		if t, err := parseFlexibleTime(string(v)); err == nil {
			return t
		}
	}
	return time.Time{}
}
