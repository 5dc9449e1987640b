package di

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/goliatone/go-metafields/cache"
	"github.com/goliatone/go-metafields/config"
	"github.com/goliatone/go-metafields/keys"
	"github.com/goliatone/go-metafields/metafields"
	"github.com/goliatone/go-metafields/store"
	"github.com/goliatone/go-metafields/values"
)

// Container provides dependency injection for metafield components.
// It owns the shared, long lived parts (database, record store, cache store,
// coordinator, key normalizer) and hands out request scoped engines.
type Container struct {
	config      config.Config
	logger      *zap.Logger
	db          *bun.DB
	records     *store.Store
	cacheStore  cache.Store
	coordinator *cache.Coordinator
	normalizer  *keys.Normalizer
	types       *values.TypeRegistry

	cacheConfig cache.Config
	redis       redis.UniversalClient
	closers     []func() error
}

// Option customises a Container.
type Option func(*Container)

// WithLogger sets the logger shared by every component.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithDB uses an existing database instead of opening one from the
// configuration. The caller keeps ownership of db.
func WithDB(db *bun.DB) Option {
	return func(c *Container) {
		c.db = db
	}
}

// WithCacheStore replaces the configured cache store.
func WithCacheStore(s cache.Store) Option {
	return func(c *Container) {
		c.cacheStore = s
	}
}

// WithCacheConfig tunes the in-process cache store.
func WithCacheConfig(cfg cache.Config) Option {
	return func(c *Container) {
		c.cacheConfig = cfg
	}
}

// WithRedisClient uses client for the redis cache store instead of dialing
// the configured URL. The caller keeps ownership of client.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(c *Container) {
		c.redis = client
	}
}

// NewContainer validates cfg and builds the shared components.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Container{
		config:      cfg,
		logger:      zap.NewNop(),
		cacheConfig: cache.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.db == nil {
		db, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		db.AddQueryHook(store.NewQueryLogger(c.logger))
		c.db = db
		c.closers = append(c.closers, db.Close)
	}

	storeOpts := cfg.StoreOptions()
	storeOpts.Logger = c.logger
	c.records = store.New(c.db, storeOpts)
	c.types = cfg.TypeRegistry()
	c.normalizer = cfg.Normalizer()

	if c.cacheStore == nil {
		s, err := c.newCacheStore()
		if err != nil {
			_ = c.Close()
			return nil, err
		}
		c.cacheStore = s
	}
	c.coordinator = cache.NewCoordinator(c.cacheStore, cfg.CacheSettings(), cache.WithLogger(c.logger))

	return c, nil
}

// NewContainerWithDefaults creates a container using config.Default.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(config.Default(), opts...)
}

func (c *Container) newCacheStore() (cache.Store, error) {
	switch c.config.CacheStore {
	case config.CacheStoreRedis:
		client := c.redis
		if client == nil {
			redisOpts, err := redis.ParseURL(c.config.RedisURL)
			if err != nil {
				return nil, &config.InvalidConfigurationError{Field: "redis_url", Err: err}
			}
			owned := redis.NewClient(redisOpts)
			c.closers = append(c.closers, owned.Close)
			client = owned
		}
		// cache payloads are the stored strings, so the codec never sees user types
		codec := values.NewStandardSerializer(c.types)
		return cache.NewRedisStore(client, codec, "", c.logger), nil
	default:
		return cache.NewStore(c.cacheConfig, c.logger)
	}
}

// Config returns the configuration the container was built from.
func (c *Container) Config() config.Config {
	return c.config
}

// DB returns the database backing the record store.
func (c *Container) DB() *bun.DB {
	return c.db
}

// Records returns the singleton record store.
func (c *Container) Records() *store.Store {
	return c.records
}

// CacheStore returns the singleton cache store.
func (c *Container) CacheStore() cache.Store {
	return c.cacheStore
}

// Coordinator returns the singleton cache coordinator.
func (c *Container) Coordinator() *cache.Coordinator {
	return c.coordinator
}

// Normalizer returns the singleton key normalizer.
func (c *Container) Normalizer() *keys.Normalizer {
	return c.normalizer
}

// Logger returns the shared logger.
func (c *Container) Logger() *zap.Logger {
	return c.logger
}

// Migrate creates the metafields table and its indexes if missing.
func (c *Container) Migrate(ctx context.Context) error {
	if err := c.records.CreateTable(ctx); err != nil {
		return fmt.Errorf("migrate %s: %w", c.records.Table(), err)
	}
	c.logger.Debug("metafields table ready", zap.String("table", c.records.Table()))
	return nil
}

// Engine returns a new unbound engine. Each engine gets its own serializer
// resolver so serializer instances never outlive the request.
func (c *Container) Engine() *metafields.Engine {
	resolver := values.NewResolver(c.config.DefaultSerializer, c.types)
	return metafields.New(c.records, c.coordinator, resolver, c.normalizer,
		metafields.WithLogger(c.logger),
	)
}

// For returns a new engine bound to m.
func (c *Container) For(m metafields.Model) *metafields.Engine {
	return c.Engine().SetModel(m)
}

// Close releases the database and redis client the container opened itself.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
