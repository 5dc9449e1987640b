package cache

import (
	"context"
	"time"
)

// FetchFn is the function signature Remember expects when fetching from the source of truth.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Store exposes the read-through operations the coordinator needs. It is
// exported so callers can plug in alternate cache backends.
//
// A zero ttl passed to Remember means the entry does not expire on its own.
// Forget must be idempotent.
type Store interface {
	Remember(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error)
	Forget(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
}

// Remember is a type-safe wrapper around Store.Remember.
func Remember[T any](ctx context.Context, store Store, key string, ttl time.Duration, fetch FetchFn[T]) (T, error) {
	result, err := store.Remember(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}

	// a cached nil comes back as an untyped nil interface
	if result == nil {
		var zero T
		return zero, nil
	}

	return result.(T), nil
}
