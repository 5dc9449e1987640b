package cacheinfra

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Codec turns cached values into strings Redis can hold.
type Codec interface {
	Serialize(value any) (string, error)
	Deserialize(serialized string) (any, error)
}

// RedisStore is a cache store backed by Redis. Values go through the codec,
// so only types the codec can reconstruct come back typed.
type RedisStore struct {
	client redis.UniversalClient
	codec  Codec
	prefix string
	logger *zap.Logger
}

// RedisOption customises a RedisStore.
type RedisOption func(*RedisStore)

// WithKeyPrefix namespaces every key written by the store.
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisLogger sets the logger used for debug output.
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore creates a store over an existing client.
func NewRedisStore(client redis.UniversalClient, codec Codec, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, codec: codec, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Remember returns the decoded value under key or runs fetch and writes its
// encoded result. A zero ttl writes a key without expiry.
func (s *RedisStore) Remember(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	fullKey := s.prefix + key

	raw, err := s.client.Get(ctx, fullKey).Result()
	switch {
	case err == nil:
		s.logger.Debug("cache hit", zap.String("key", fullKey))
		return s.codec.Deserialize(raw)
	case !errors.Is(err, redis.Nil):
		return nil, err
	}

	s.logger.Debug("cache miss", zap.String("key", fullKey))
	value, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := s.codec.Serialize(value)
	if err != nil {
		return nil, err
	}
	if err := s.client.Set(ctx, fullKey, encoded, ttl).Err(); err != nil {
		return nil, err
	}
	return value, nil
}

// Forget deletes key. Deleting a missing key is not an error.
func (s *RedisStore) Forget(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.prefix+key).Err()
}

// Has reports whether key exists.
func (s *RedisStore) Has(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
