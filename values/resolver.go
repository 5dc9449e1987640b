package values

import (
	"fmt"

	"github.com/goliatone/go-metafields/keys"
	"github.com/puzpuzpuz/xsync/v3"
)

// Factory builds a serializer instance. The result is checked against the
// Serializer contract before use, so factories for arbitrary types can be
// registered and rejected at resolution time.
type Factory func() any

// Bindings exposes per-entity serializer overrides.
type Bindings interface {
	SerializerFor(key keys.Key) (string, bool)
}

// Resolver selects the serializer for a key. Instances are cached per
// identifier for the lifetime of the resolver only.
type Resolver struct {
	defaultID string
	factories *xsync.MapOf[string, Factory]
	instances *xsync.MapOf[string, Serializer]
}

// NewResolver creates a resolver whose DefaultID maps to defaultID. The
// built-in serializers are registered, with the standard one restricted to types.
func NewResolver(defaultID string, types *TypeRegistry) *Resolver {
	if defaultID == "" {
		defaultID = StandardID
	}
	r := &Resolver{
		defaultID: defaultID,
		factories: xsync.NewMapOf[string, Factory](),
		instances: xsync.NewMapOf[string, Serializer](),
	}
	r.Register(StandardID, func() any { return NewStandardSerializer(types) })
	r.Register(DirectID, func() any { return NewDirectSerializer() })
	r.Register(JSONID, func() any { return NewJSONSerializer() })
	return r
}

// Register adds or replaces the factory for id. A cached instance for id
// is discarded.
func (r *Resolver) Register(id string, factory Factory) {
	r.factories.Store(id, factory)
	r.instances.Delete(id)
}

// DefaultSerializerID returns the identifier DefaultID resolves to.
func (r *Resolver) DefaultSerializerID() string {
	return r.defaultID
}

// IsValidSerializer reports whether id names a serializer. DefaultID is
// always valid.
func (r *Resolver) IsValidSerializer(id string) bool {
	if id == DefaultID {
		return true
	}
	_, err := r.Make(id)
	return err == nil
}

// Resolve returns the serializer bound to key, falling back to the default.
func (r *Resolver) Resolve(bindings Bindings, key keys.Key) (Serializer, error) {
	id := DefaultID
	if bindings != nil {
		if bound, ok := bindings.SerializerFor(key); ok {
			id = bound
		}
	}
	return r.Make(id)
}

// Make returns the cached instance for id, building it on first use.
func (r *Resolver) Make(id string) (Serializer, error) {
	if id == DefaultID {
		id = r.defaultID
		if id == DefaultID {
			return nil, &InvalidSerializerError{ID: id, Reason: "default serializer points to itself"}
		}
	}

	if s, ok := r.instances.Load(id); ok {
		return s, nil
	}

	factory, ok := r.factories.Load(id)
	if !ok || factory == nil {
		return nil, &InvalidSerializerError{ID: id, Reason: "not registered"}
	}

	built := factory()
	s, ok := built.(Serializer)
	if !ok {
		return nil, &InvalidSerializerError{
			ID:     id,
			Reason: fmt.Sprintf("%T does not implement Serialize and Deserialize", built),
		}
	}

	actual, _ := r.instances.LoadOrStore(id, s)
	return actual, nil
}
