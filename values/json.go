package values

import (
	"encoding/json"
	"fmt"
	"reflect"
	"unicode/utf8"
)

// JSONSerializer stores values as JSON text. Decoded values use the generic
// encoding/json shapes: map[string]any, []any, float64, string, bool.
type JSONSerializer struct{}

// NewJSONSerializer returns a JSON serializer.
func NewJSONSerializer() *JSONSerializer {
	return &JSONSerializer{}
}

// Serialize implements Serializer. Strings with invalid UTF-8 are rejected
// instead of being silently replaced.
func (JSONSerializer) Serialize(value any) (string, error) {
	if path, ok := invalidUTF8(reflect.ValueOf(value), "$", 0); ok {
		return "", &SerializationError{
			Serializer: JSONID,
			Op:         "serialize",
			Err:        fmt.Errorf("invalid UTF-8 at %s", path),
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", &SerializationError{Serializer: JSONID, Op: "serialize", Err: err}
	}
	return string(data), nil
}

// Deserialize implements Serializer.
func (JSONSerializer) Deserialize(serialized string) (any, error) {
	var out any
	if err := json.Unmarshal([]byte(serialized), &out); err != nil {
		return nil, &SerializationError{Serializer: JSONID, Op: "deserialize", Err: err}
	}
	return out, nil
}

const maxWalkDepth = 1000

// invalidUTF8 walks v looking for a string that is not valid UTF-8 and
// returns its path.
func invalidUTF8(v reflect.Value, path string, depth int) (string, bool) {
	if depth > maxWalkDepth {
		// cycles are reported by encoding/json itself
		return "", false
	}
	depth++
	switch v.Kind() {
	case reflect.Invalid:
		return "", false
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return path, true
		}
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return "", false
		}
		return invalidUTF8(v.Elem(), path, depth)
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			// encoded as base64
			return "", false
		}
		for i := 0; i < v.Len(); i++ {
			if p, ok := invalidUTF8(v.Index(i), fmt.Sprintf("%s[%d]", path, i), depth); ok {
				return p, true
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			k := iter.Key()
			if k.Kind() == reflect.String && !utf8.ValidString(k.String()) {
				return path + ".<key>", true
			}
			if p, ok := invalidUTF8(iter.Value(), fmt.Sprintf("%s.%v", path, k.Interface()), depth); ok {
				return p, true
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if p, ok := invalidUTF8(v.Field(i), path+"."+t.Field(i).Name, depth); ok {
				return p, true
			}
		}
	}
	return "", false
}
