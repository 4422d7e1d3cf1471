package reason

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
)

// maxListItems is how many list elements are shown before the rest are
// summarised as "... and N more".
const maxListItems = 3

// Value renders a payload or literal value for a reason sentence. Strings are
// returned bare; numbers drop a trailing ".0"; lists and objects use a quoted
// element syntax such as ['a', 'b'].
func Value(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case json.Number:
		return x.String()
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("'%s': %s", k, element(x[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if list, ok := condition.AsList(v); ok {
		return listText(list, len(list))
	}
	return fmt.Sprint(v)
}

// List renders a list, showing at most three elements.
func List(list []any) string {
	return listText(list, maxListItems)
}

func listText(list []any, limit int) string {
	n := len(list)
	if n > limit {
		n = limit
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = element(list[i])
	}
	if len(list) > limit {
		return fmt.Sprintf("[%s, ... and %d more]", strings.Join(parts, ", "), len(list)-limit)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func element(v any) string {
	if s, ok := v.(string); ok {
		return "'" + s + "'"
	}
	return Value(v)
}
