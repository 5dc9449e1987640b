package metafields

import (
	"reflect"
	"time"

	"github.com/goliatone/go-metafields/keys"
)

// Model is implemented by entities metafields can be attached to.
// MorphID may return nil (or a zero value) for entities that are not
// persisted yet.
type Model interface {
	MorphType() string
	MorphID() any
	Metafields() *Fields
}

// Fields carries the per-instance metafield settings of a Model: cache
// overrides and serializer bindings. Nil overrides defer to the global
// configuration. Bindings are never persisted.
type Fields struct {
	Cache    *bool
	CacheTTL *time.Duration

	serializers map[string]string
}

// SerializerFor returns the serializer identifier bound to key.
func (f *Fields) SerializerFor(key keys.Key) (string, bool) {
	if f == nil {
		return "", false
	}
	id, ok := f.serializers[key.String()]
	return id, ok
}

// Serializers returns a copy of the key to serializer bindings.
func (f *Fields) Serializers() map[string]string {
	if f == nil {
		return map[string]string{}
	}
	out := make(map[string]string, len(f.serializers))
	for k, v := range f.serializers {
		out[k] = v
	}
	return out
}

// SetCache overrides the global cache flag for this instance.
func (f *Fields) SetCache(enabled bool) *Fields {
	f.Cache = &enabled
	return f
}

// SetCacheTTL overrides the global TTL for this instance. Zero caches forever.
func (f *Fields) SetCacheTTL(ttl time.Duration) *Fields {
	f.CacheTTL = &ttl
	return f
}

func (f *Fields) bind(key keys.Key, id string) error {
	if existing, ok := f.serializers[key.String()]; ok {
		return &DuplicateKeyError{Key: key.String(), Existing: existing}
	}
	if f.serializers == nil {
		f.serializers = make(map[string]string)
	}
	f.serializers[key.String()] = id
	return nil
}

// Base can be embedded to satisfy the Metafields part of Model.
type Base struct {
	fields Fields
}

// Metafields returns the embedded settings.
func (b *Base) Metafields() *Fields {
	return &b.fields
}

// MorphTypeOf returns the bare type name of v, dereferencing pointers.
// It is a convenient MorphType for most entities.
func MorphTypeOf(v any) string {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
