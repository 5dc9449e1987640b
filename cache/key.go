package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = ":"

// NullIdentity stands in for the identifier of an entity that has none yet.
const NullIdentity = "null"

// BuildKey joins the non-empty parts with KeySeparator.
func BuildKey(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, KeySeparator)
}

// Identity renders an entity identifier as a key segment. Nil, nil pointers
// and zero values render as the empty string so callers can substitute
// NullIdentity.
func Identity(id any) string {
	if id == nil {
		return ""
	}

	rv := reflect.ValueOf(id)
	if rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		return Identity(rv.Elem().Interface())
	}

	if rv.IsZero() {
		return ""
	}

	if s, ok := id.(fmt.Stringer); ok {
		return s.String()
	}

	if isBasicKind(rv.Kind()) {
		return fmt.Sprintf("%v", id)
	}

	return jsonFallback(id)
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback keeps composite identifiers deterministic without failing
// the cache operation.
func jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(data)
}
