// Package model holds the value types shared by the planner, the index
// maintainer and the schema engine: documents, and the declared shape of
// collections and indexes (spec §3).
package model

import "strings"

// Document is a JSON-like value: after decoding, every object is a
// map[string]any, every array a []any, every number a float64. This mirrors
// the json.RawMessage-at-rest / map[string]any-in-memory split beads'
// adapter.go uses for its document log entries.
type Document = map[string]any

// undefinedType is the sentinel returned when an index property's path is
// absent from a document (spec's "undefined", distinct from a present JSON
// null). It is its own type so reflect.DeepEqual never confuses it with any
// decoded document value.
type undefinedType struct{}

// Undefined represents a missing (not merely null) extracted value.
var Undefined undefinedType

// IsUndefined reports whether v is the Undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(undefinedType)
	return ok
}

// ValidDocKey reports whether k is usable as a document key: a non-empty
// string or a finite number.
func ValidDocKey(k any) bool {
	switch v := k.(type) {
	case string:
		return v != ""
	case float64:
		return !isNaNOrInf(v)
	case int, int64:
		return true
	default:
		return false
	}
}

func isNaNOrInf(f float64) bool {
	return f != f || f > maxFiniteFloat || f < -maxFiniteFloat
}

const maxFiniteFloat = 1.7976931348623157e+308

// Flatten walks doc's nested objects, joining keys with "." to produce a
// flat map suitable for simple dotted-path property extraction. Arrays are
// left intact as leaf values — only nested objects are flattened.
func Flatten(doc Document) map[string]any {
	out := make(map[string]any)
	flattenInto(out, "", doc)
	return out
}

func flattenInto(out map[string]any, prefix string, v any) {
	obj, ok := v.(map[string]any)
	if !ok {
		if prefix != "" {
			out[prefix] = v
		}
		return
	}
	for k, val := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := val.(map[string]any); ok {
			flattenInto(out, key, nested)
			continue
		}
		out[key] = val
	}
}

// ExtractPath reads a dotted path from a flattened document. It returns
// (nil, false) when the path is absent.
func ExtractPath(flat map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	v, ok := flat[path]
	return v, ok
}

// SplitPath splits a dotted property path into its components.
func SplitPath(path string) []string {
	return strings.Split(path, ".")
}
