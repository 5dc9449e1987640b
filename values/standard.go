package values

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"reflect"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	tagNil  = "nil"
	tagMap  = "map"
	tagList = "list"
	tagAny  = "any"
)

// node is one level of the self-describing payload. Generic maps and lists
// are encoded per element so nested values keep their own type tag.
type node struct {
	Type string             `msgpack:"t"`
	Ptr  bool               `msgpack:"p,omitempty"`
	Data msgpack.RawMessage `msgpack:"d,omitempty"`
	Map  map[string]*node   `msgpack:"m,omitempty"`
	List []*node            `msgpack:"l,omitempty"`
}

// Incomplete stands in for a payload whose type tag is not allow-listed.
// Fields holds the generically decoded data; no instance of the tagged type
// is ever created.
type Incomplete struct {
	TypeName string
	Fields   any
}

// String implements fmt.Stringer.
func (i *Incomplete) String() string {
	return fmt.Sprintf("incomplete(%s)", i.TypeName)
}

// StandardSerializer encodes arbitrary values as base64 msgpack trees tagged
// with type names. Only builtin and allow-listed types are reconstructed.
type StandardSerializer struct {
	types *TypeRegistry
}

// NewStandardSerializer returns a serializer restricted to the given registry.
// A nil registry allows the builtin types only.
func NewStandardSerializer(types *TypeRegistry) *StandardSerializer {
	if types == nil {
		types = NewTypeRegistry()
	}
	return &StandardSerializer{types: types}
}

// Serialize implements Serializer.
func (s *StandardSerializer) Serialize(value any) (string, error) {
	n, err := s.encode(value)
	if err != nil {
		return "", &SerializationError{Serializer: StandardID, Op: "serialize", Err: err}
	}
	raw, err := msgpack.Marshal(n)
	if err != nil {
		return "", &SerializationError{Serializer: StandardID, Op: "serialize", Err: err}
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Deserialize implements Serializer.
func (s *StandardSerializer) Deserialize(serialized string) (any, error) {
	raw, err := base64.StdEncoding.DecodeString(serialized)
	if err != nil {
		return nil, &SerializationError{Serializer: StandardID, Op: "deserialize", Err: err}
	}
	var n node
	if err := msgpack.Unmarshal(raw, &n); err != nil {
		return nil, &SerializationError{Serializer: StandardID, Op: "deserialize", Err: err}
	}
	v, err := s.decode(&n)
	if err != nil {
		return nil, &SerializationError{Serializer: StandardID, Op: "deserialize", Err: err}
	}
	return v, nil
}

func (s *StandardSerializer) encode(value any) (*node, error) {
	switch t := value.(type) {
	case nil:
		return &node{Type: tagNil}, nil
	case map[string]any:
		n := &node{Type: tagMap, Map: make(map[string]*node, len(t))}
		for k, v := range t {
			child, err := s.encode(v)
			if err != nil {
				return nil, fmt.Errorf("map key %q: %w", k, err)
			}
			n.Map[k] = child
		}
		return n, nil
	case []any:
		n := &node{Type: tagList, List: make([]*node, 0, len(t))}
		for i, v := range t {
			child, err := s.encode(v)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			n.List = append(n.List, child)
		}
		return n, nil
	case *Incomplete:
		if t == nil {
			return &node{Type: tagNil}, nil
		}
		// written back under the original tag, never as an Incomplete
		data, err := msgpack.Marshal(t.Fields)
		if err != nil {
			return nil, err
		}
		return &node{Type: t.TypeName, Data: data}, nil
	}

	rv := reflect.ValueOf(value)
	ptr := false
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return &node{Type: tagNil}, nil
		}
		rv = rv.Elem()
		ptr = true
	}

	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
		return nil, fmt.Errorf("unsupported type %s", rv.Type())
	}

	data, err := msgpack.Marshal(rv.Interface())
	if err != nil {
		return nil, err
	}

	rt := rv.Type()
	tag := tagAny
	if isNamed(rt) || s.types.Allowed(rt) {
		tag = TypeName(rt)
	}
	return &node{Type: tag, Ptr: ptr, Data: data}, nil
}

func (s *StandardSerializer) decode(n *node) (any, error) {
	switch n.Type {
	case tagNil:
		return nil, nil
	case tagMap:
		out := make(map[string]any, len(n.Map))
		for k, child := range n.Map {
			v, err := s.decode(child)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case tagList:
		out := make([]any, 0, len(n.List))
		for _, child := range n.List {
			v, err := s.decode(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case tagAny:
		return decodeLoose(n.Data)
	}

	t, ok := s.types.Lookup(n.Type)
	if !ok {
		fields, err := decodeLoose(n.Data)
		if err != nil {
			return nil, err
		}
		return &Incomplete{TypeName: n.Type, Fields: fields}, nil
	}

	target := reflect.New(t)
	if err := msgpack.Unmarshal(n.Data, target.Interface()); err != nil {
		return nil, fmt.Errorf("decode %s: %w", n.Type, err)
	}
	if n.Ptr {
		return target.Interface(), nil
	}
	return target.Elem().Interface(), nil
}

func decodeLoose(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	return dec.DecodeInterfaceLoose()
}
