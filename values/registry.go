package values

import (
	"reflect"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// builtinTypes are reconstructed by the StandardSerializer without being
// allow-listed. None of them can carry behaviour of their own.
var builtinTypes = []any{
	false, "",
	int(0), int8(0), int16(0), int32(0), int64(0),
	uint(0), uint8(0), uint16(0), uint32(0), uint64(0),
	float32(0), float64(0),
	[]byte(nil), []string(nil), []int(nil), []int64(nil), []float64(nil), []bool(nil),
	map[string]string(nil), map[string]int(nil), map[string]int64(nil),
	map[string]float64(nil), map[string]bool(nil),
	time.Time{}, time.Duration(0),
}

// TypeRegistry is the allow-list of named types the StandardSerializer may
// reconstruct. It is safe for concurrent use.
type TypeRegistry struct {
	types *xsync.MapOf[string, reflect.Type]
}

// NewTypeRegistry returns a registry holding the builtin types plus the
// types of the given samples.
func NewTypeRegistry(samples ...any) *TypeRegistry {
	r := &TypeRegistry{types: xsync.NewMapOf[string, reflect.Type]()}
	for _, b := range builtinTypes {
		r.add(reflect.TypeOf(b))
	}
	r.Register(samples...)
	return r
}

// Register allow-lists the dynamic type of every sample. Pointer samples
// register their element type.
func (r *TypeRegistry) Register(samples ...any) {
	for _, s := range samples {
		t := reflect.TypeOf(s)
		if t == nil {
			continue
		}
		if t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		r.add(t)
	}
}

// Lookup returns the allow-listed type registered under name.
func (r *TypeRegistry) Lookup(name string) (reflect.Type, bool) {
	return r.types.Load(name)
}

// Allowed reports whether t may be reconstructed.
func (r *TypeRegistry) Allowed(t reflect.Type) bool {
	_, ok := r.types.Load(TypeName(t))
	return ok
}

// Names lists every registered type name.
func (r *TypeRegistry) Names() []string {
	names := make([]string, 0, r.types.Size())
	r.types.Range(func(name string, _ reflect.Type) bool {
		names = append(names, name)
		return true
	})
	return names
}

func (r *TypeRegistry) add(t reflect.Type) {
	r.types.Store(TypeName(t), t)
}

// TypeName is the tag written into payloads for t: the package qualified
// name for named types, the type literal otherwise.
func TypeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	return t.String()
}

// isNamed reports whether t is a user defined type that must pass the allow-list.
func isNamed(t reflect.Type) bool {
	return t.Name() != "" && t.PkgPath() != ""
}
