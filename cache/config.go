package cache

import (
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/goliatone/go-metafields/internal/cacheinfra"
)

// Config exposes in-process store options for consumers of the cache package.
type Config struct {
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EvictionInterval   time.Duration
}

// Codec encodes values written to remote stores.
type Codec interface {
	Serialize(value any) (string, error)
	Deserialize(serialized string) (any, error)
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewStore constructs the default in-process store using the provided configuration.
func NewStore(cfg Config, logger *zap.Logger) (Store, error) {
	store, err := cacheinfra.NewSturdycStore(cfg.toInternal(), cacheinfra.WithSturdycLogger(logger))
	if err != nil {
		return nil, err
	}
	return store, nil
}

// NewRedisStore constructs a store over a Redis client. Keys are namespaced
// with keyPrefix in addition to the coordinator prefix.
func NewRedisStore(client redis.UniversalClient, codec Codec, keyPrefix string, logger *zap.Logger) Store {
	return cacheinfra.NewRedisStore(client, codec,
		cacheinfra.WithKeyPrefix(keyPrefix),
		cacheinfra.WithRedisLogger(logger),
	)
}

func (c Config) toInternal() cacheinfra.Config {
	return cacheinfra.Config{
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	return Config{
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
