// Package metafields attaches arbitrary key/value attributes to entities
// that are not part of their fixed schema.
//
// An Engine is bound to one Model at a time. Keys are normalized by a
// keys.Normalizer, values are encoded by the serializer a values.Resolver
// picks for the key, records live in a RecordStore and reads go through a
// cache.Coordinator:
//
//	engine := metafields.New(records, coordinator, resolver, normalizer).SetModel(car)
//
//	engine.Set(ctx, keys.Raw("color"), "red")
//	color, err := engine.Get(ctx, keys.Raw("color"), "unknown")
//	all, err := engine.GetAll(ctx)
//
// Every write drops the cache entry of the written key and of the GetAll
// aggregate, so a read after a write observes it whether the read is
// served from the cache or from storage.
//
// Serializer bindings are per instance and set once per key:
//
//	engine.MapSerializer(keys.Raw("bio"), values.DirectID)
//
// WithoutCache returns a view limited to Get and GetAll that bypasses the
// cache entirely.
package metafields
