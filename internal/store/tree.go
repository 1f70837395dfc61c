package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

var ErrInvalidPath = errors.New("invalid path")

// ServerTimestamp is replaced with the store's clock, in milliseconds since
// the epoch, when it appears anywhere inside a written value.
var ServerTimestamp = map[string]any{".sv": "timestamp"}

// Query restricts a subscription to the children of the subscribed node whose
// OrderByChild field equals EqualTo. The zero Query matches everything.
type Query struct {
	OrderByChild string
	EqualTo      string
}

func (q Query) IsZero() bool {
	return q.OrderByChild == ""
}

func (q Query) apply(v any) any {
	if q.IsZero() {
		return v
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := map[string]any{}
	for k, child := range m {
		cm, ok := child.(map[string]any)
		if !ok {
			continue
		}
		if cast.ToString(cm[q.OrderByChild]) == q.EqualTo {
			out[k] = child
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// SplitPath validates a slash separated path. The root itself is not addressable.
func SplitPath(p string) ([]string, error) {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
	}
	parts := strings.Split(trimmed, "/")
	for _, s := range parts {
		if s == "" || strings.ContainsAny(s, ".#$[]") {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}
	return parts, nil
}

// Join builds a path from segments without validating them.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// normalize turns an arbitrary Go value into the JSON tree shape the store
// keeps (maps, slices, float64, string, bool), resolving server timestamps and
// dropping nulls and empty maps.
func normalize(value any, now int64) (any, error) {
	if value == nil {
		return nil, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return prune(resolve(out, now)), nil
}

func resolve(v any, now int64) any {
	switch t := v.(type) {
	case map[string]any:
		if len(t) == 1 && t[".sv"] == "timestamp" {
			return float64(now)
		}
		for k, child := range t {
			t[k] = resolve(child, now)
		}
		return t
	case []any:
		for i, child := range t {
			t[i] = resolve(child, now)
		}
		return t
	default:
		return v
	}
}

func prune(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, child := range t {
			if p := prune(child); p == nil {
				delete(t, k)
			} else {
				t[k] = p
			}
		}
		if len(t) == 0 {
			return nil
		}
		return t
	case []any:
		if len(t) == 0 {
			return nil
		}
		return t
	default:
		return v
	}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			out[k] = deepCopy(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = deepCopy(child)
		}
		return out
	default:
		return v
	}
}

func getAt(v any, parts []string) any {
	for _, p := range parts {
		switch t := v.(type) {
		case map[string]any:
			v = t[p]
		case []any:
			i, err := strconv.Atoi(p)
			if err != nil || i < 0 || i >= len(t) {
				return nil
			}
			v = t[i]
		default:
			return nil
		}
	}
	return v
}

// setAt writes value under parts inside m, creating intermediate maps and
// removing maps that end up empty. A nil value deletes.
func setAt(m map[string]any, parts []string, value any) {
	key := parts[0]
	if len(parts) == 1 {
		if value == nil {
			delete(m, key)
		} else {
			m[key] = value
		}
		return
	}
	child, ok := m[key].(map[string]any)
	if !ok {
		if value == nil {
			return
		}
		child = map[string]any{}
		m[key] = child
	}
	setAt(child, parts[1:], value)
	if len(child) == 0 {
		delete(m, key)
	}
}

// overlaps reports whether a write at b can change the value observed at a.
func overlaps(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
