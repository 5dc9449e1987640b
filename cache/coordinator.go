package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-metafields/keys"
)

// Entity describes the owner of a cache entry together with its instance
// level overrides. Nil overrides fall back to the coordinator Settings.
type Entity struct {
	Type  string
	ID    any
	Cache *bool
	TTL   *time.Duration
}

// Settings holds the global cache policy.
type Settings struct {
	Enabled bool
	// TTL of zero keeps entries until they are invalidated.
	TTL    time.Duration
	Prefix string
}

// Coordinator computes cache keys and decides, per entity and per call,
// whether a read goes through the store.
type Coordinator struct {
	store    Store
	settings Settings
	logger   *zap.Logger
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger used for hit/miss and invalidation output.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCoordinator creates a coordinator over store. A nil store disables caching.
func NewCoordinator(store Store, settings Settings, opts ...Option) *Coordinator {
	c := &Coordinator{store: store, settings: settings, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Settings returns the global policy.
func (c *Coordinator) Settings() Settings {
	return c.settings
}

// ComputeKey returns prefix:type:id:key. Entities without an identifier use
// NullIdentity and a nil key addresses the entity as a whole.
func (c *Coordinator) ComputeKey(e Entity, key *keys.Key) string {
	id := Identity(e.ID)
	if id == "" {
		id = NullIdentity
	}
	field := ""
	if key != nil {
		field = key.String()
	}
	return BuildKey(c.settings.Prefix, e.Type, id, field)
}

// ShouldCache returns the entity override when present, else the global flag.
func (c *Coordinator) ShouldCache(e Entity) bool {
	if c.store == nil {
		return false
	}
	if e.Cache != nil {
		return *e.Cache
	}
	return c.settings.Enabled
}

// TTL returns the effective time to live for e's entries.
func (c *Coordinator) TTL(e Entity) time.Duration {
	if e.TTL != nil {
		return *e.TTL
	}
	return c.settings.TTL
}

// ReadThrough serves key from the cache store, calling loader on a miss.
// When caching is off for e, or ctx carries WithoutCache, loader is called
// directly and nothing is stored.
func (c *Coordinator) ReadThrough(ctx context.Context, e Entity, key *keys.Key, loader func(context.Context) (any, error)) (any, error) {
	if !c.ShouldCache(e) || IsBypassed(ctx) {
		return loader(ctx)
	}

	cacheKey := c.ComputeKey(e, key)
	c.logger.Debug("metafield read through cache", zap.String("key", cacheKey))
	return c.store.Remember(ctx, cacheKey, c.TTL(e), loader)
}

// Invalidate removes the entry for key. Missing entries are not an error.
func (c *Coordinator) Invalidate(ctx context.Context, e Entity, key *keys.Key) error {
	if c.store == nil {
		return nil
	}
	cacheKey := c.ComputeKey(e, key)
	c.logger.Debug("metafield cache invalidated", zap.String("key", cacheKey))
	return c.store.Forget(ctx, cacheKey)
}

// Exists reports whether an entry for key is currently cached.
func (c *Coordinator) Exists(ctx context.Context, e Entity, key *keys.Key) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	return c.store.Has(ctx, c.ComputeKey(e, key))
}
