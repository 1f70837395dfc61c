// Package snapshot decodes raw document-store snapshots into typed records.
//
// The store does not enforce a schema, so decoding never fails: every field
// is read permissively and missing fields fall back to their zero default.
// Fields the decoder does not know are kept in the record's Extra map.
package snapshot

import (
	"sort"
	"strconv"

	"github.com/spf13/cast"
)

// Entry is one top-level child of a snapshot.
type Entry struct {
	ID     string
	Fields map[string]any
}

// Entries splits a snapshot into its top-level children, ordered by key.
// A nil snapshot yields no entries; a child that is not a map yields an entry
// with empty fields.
func Entries(raw any) []Entry {
	switch t := raw.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]Entry, 0, len(keys))
		for _, k := range keys {
			out = append(out, Entry{ID: k, Fields: fields(t[k])})
		}
		return out
	case []any:
		out := make([]Entry, 0, len(t))
		for i, child := range t {
			if child == nil {
				continue
			}
			out = append(out, Entry{ID: strconv.Itoa(i), Fields: fields(child)})
		}
		return out
	default:
		return []Entry{}
	}
}

func fields(v any) map[string]any {
	m, ok := v.(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return m
}

func text(f map[string]any, key string) string {
	return cast.ToString(f[key])
}

// list reads an ordered list that may have been stored as an array or as an
// index-keyed map.
func list(f map[string]any, key string) []string {
	out := []string{}
	switch t := f[key].(type) {
	case []any:
		for _, v := range t {
			if v == nil {
				continue
			}
			out = append(out, cast.ToString(v))
		}
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			a, errA := strconv.Atoi(keys[i])
			b, errB := strconv.Atoi(keys[j])
			if errA == nil && errB == nil {
				return a < b
			}
			return keys[i] < keys[j]
		})
		for _, k := range keys {
			out = append(out, cast.ToString(t[k]))
		}
	case string:
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func extra(f map[string]any, known ...string) map[string]any {
	var out map[string]any
	for k, v := range f {
		isKnown := false
		for _, kn := range known {
			if k == kn {
				isKnown = true
				break
			}
		}
		if isKnown {
			continue
		}
		if out == nil {
			out = map[string]any{}
		}
		out[k] = v
	}
	return out
}
