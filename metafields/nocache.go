package metafields

import (
	"context"
	"fmt"

	"github.com/goliatone/go-metafields/cache"
	"github.com/goliatone/go-metafields/keys"
)

// Method names accepted by NoCache.Invoke.
const (
	MethodGet    = "get"
	MethodGetAll = "getAll"
)

var noCacheMethods = []string{MethodGet, MethodGetAll}

// NoCache is a read-only view of an Engine whose reads neither consult nor
// populate the cache. Writes are not part of the view.
type NoCache struct {
	engine *Engine
}

// Get reads key straight from the record store.
func (n *NoCache) Get(ctx context.Context, key keys.Input, def any) (any, error) {
	return n.engine.Get(cache.WithoutCache(ctx), key, def)
}

// GetAll reads every metafield straight from the record store.
func (n *NoCache) GetAll(ctx context.Context) (map[string]any, error) {
	return n.engine.GetAll(cache.WithoutCache(ctx))
}

// Invoke dispatches by method name for callers that only know the
// operation at runtime. Anything but get and getAll fails with
// MethodNotAllowedError.
func (n *NoCache) Invoke(ctx context.Context, method string, args ...any) (any, error) {
	switch method {
	case MethodGet:
		if len(args) < 1 || len(args) > 2 {
			return nil, fmt.Errorf("metafields: %s expects a key and an optional default, got %d arguments", method, len(args))
		}
		key, err := keys.Of(args[0])
		if err != nil {
			return nil, err
		}
		var def any
		if len(args) == 2 {
			def = args[1]
		}
		return n.Get(ctx, key, def)
	case MethodGetAll:
		if len(args) != 0 {
			return nil, fmt.Errorf("metafields: %s takes no arguments, got %d", method, len(args))
		}
		return n.GetAll(ctx)
	default:
		allowed := make([]string, len(noCacheMethods))
		copy(allowed, noCacheMethods)
		return nil, &MethodNotAllowedError{Method: method, Allowed: allowed}
	}
}
