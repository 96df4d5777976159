package menu

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/marmos91/ussdgw/pkg/actions"
)

// contextMap flattens an actions.Context into a nested map[string]any so
// dotted-path lookups ("customer.accounts.0", "session.authStatus") work
// uniformly across Go struct fields and the free-form Data/Transaction
// maps. It round-trips through JSON, the same technique pkg/session uses
// to get structural (rather than reflective) access to a typed record.
func contextMap(ctx actions.Context) map[string]any {
	raw := map[string]any{
		"data":        ctx.Data,
		"transaction": ctx.Transaction,
	}

	if ctx.Customer != nil {
		if b, err := json.Marshal(ctx.Customer); err == nil {
			var m map[string]any
			if json.Unmarshal(b, &m) == nil {
				raw["customer"] = m
			}
		}
	}
	if ctx.Session != nil {
		if b, err := json.Marshal(ctx.Session); err == nil {
			var m map[string]any
			if json.Unmarshal(b, &m) == nil {
				raw["session"] = m
			}
		}
	}

	return raw
}

// resolvePath walks a dotted path ("customer.accounts.0") through a nested
// map/slice structure. The second return is false if any segment is
// missing.
func resolvePath(root map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}

	var current any = root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// renderString stringifies a resolved context value for template
// substitution.
func renderString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return ""
		}
		return strings.Trim(string(b), `"`)
	}
}
