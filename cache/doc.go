// Package cache provides the cache store contract, cache key construction
// and the coordinator that keeps metafield reads consistent with writes.
//
// # Overview
//
//   - Store: read-through get/set/forget with a per-entry TTL
//   - Coordinator: computes prefix:type:id:key keys, applies the global and
//     per-entity cache policy, and invalidates entries after writes
//   - WithoutCache: marks a context so reads skip the store
//
// Two Store implementations are provided: NewStore returns an in-process
// sturdyc backed store and NewRedisStore a Redis backed one.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig(), logger)
//	coord := cache.NewCoordinator(store, cache.Settings{Enabled: true, Prefix: "metafields"})
//
//	entity := cache.Entity{Type: "Car", ID: 1}
//	value, err := coord.ReadThrough(ctx, entity, &key, func(ctx context.Context) (any, error) {
//		return loadFromDatabase(ctx)
//	})
//
// # Keys
//
// Keys join the configured prefix, the entity type, the entity identifier and
// the field key with ":". Empty members are dropped, an entity without an
// identifier uses the literal "null", and a nil field key addresses the
// entity as a whole:
//
//	metafields:Car:1:color
//	metafields:Car:null:color
//
// # TTL
//
// A zero TTL keeps the entry until it is invalidated. The in-process store is
// still bounded by its own Config.TTL and capacity.
//
// # Bypass
//
// Reads made with a context returned by WithoutCache neither consult nor
// populate the store. Invalidation is unaffected.
package cache
