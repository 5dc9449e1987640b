package cacheinfra

import (
	"context"
	"time"

	"github.com/viccon/sturdyc"
	"go.uber.org/zap"
)

// Config holds the configuration for the sturdyc cache adapter.
type Config struct {
	// Capacity defines the maximum number of entries that the cache can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Must be greater than 0. Default: 256
	NumShards int

	// TTL is the longest an entry is retained by the client. Entries written
	// with a per-entry TTL expire earlier; entries written without one
	// ("forever") live until this TTL or until evicted.
	// Must be greater than 0.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries to evict
	// when the cache reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EvictionInterval sets how often the cache checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// DefaultConfig returns a Config with sensible defaults for most use cases.
func DefaultConfig() Config {
	return Config{
		Capacity:           10000,
		NumShards:          256,
		TTL:                30 * 24 * time.Hour,
		EvictionPercentage: 10,
		EvictionInterval:   0, // Use default
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included in the options.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid.
func (c Config) Validate() error {
	if c.Capacity <= 0 {
		return &ConfigError{Field: "Capacity", Message: "must be greater than 0"}
	}

	if c.NumShards <= 0 {
		return &ConfigError{Field: "NumShards", Message: "must be greater than 0"}
	}

	if c.TTL <= 0 {
		return &ConfigError{Field: "TTL", Message: "must be greater than 0"}
	}

	if c.EvictionPercentage < 1 || c.EvictionPercentage > 100 {
		return &ConfigError{Field: "EvictionPercentage", Message: "must be between 1 and 100"}
	}

	if c.EvictionInterval < 0 {
		return &ConfigError{Field: "EvictionInterval", Message: "must be non-negative"}
	}

	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// entry carries its own deadline so each key can use a different TTL on
// top of the client wide one.
type entry struct {
	value     any
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// SturdycStore is an in-process cache store backed by a sturdyc client.
type SturdycStore struct {
	client *sturdyc.Client[entry]
	now    func() time.Time
	logger *zap.Logger
}

// SturdycOption customises a SturdycStore.
type SturdycOption func(*SturdycStore)

// WithClock overrides the clock used for per-entry expiry.
func WithClock(now func() time.Time) SturdycOption {
	return func(s *SturdycStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSturdycLogger sets the logger used for debug output.
func WithSturdycLogger(logger *zap.Logger) SturdycOption {
	return func(s *SturdycStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSturdycStore creates a new sturdyc backed store.
// It validates the configuration and initializes a sturdyc client with the provided settings.
func NewSturdycStore(cfg Config, opts ...SturdycOption) (*SturdycStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := sturdyc.New[entry](
		cfg.Capacity,
		cfg.NumShards,
		cfg.TTL,
		cfg.EvictionPercentage,
		cfg.ToSturdycOptions()...,
	)

	s := &SturdycStore{client: client, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Remember returns the value stored under key, or runs fetch and stores its
// result. Concurrent misses on one key share a single fetch. A zero ttl
// stores the entry without a per-entry deadline. Fetch errors are returned
// as is and nothing is stored.
func (s *SturdycStore) Remember(ctx context.Context, key string, ttl time.Duration, fetch func(context.Context) (any, error)) (any, error) {
	if e, ok := s.client.Get(key); ok && e.expired(s.now()) {
		s.client.Delete(key)
	}

	fetched := false
	e, err := s.client.GetOrFetch(ctx, key, func(ctx context.Context) (entry, error) {
		fetched = true
		value, err := fetch(ctx)
		if err != nil {
			return entry{}, err
		}
		out := entry{value: value}
		if ttl > 0 {
			out.expiresAt = s.now().Add(ttl)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	if fetched {
		s.logger.Debug("cache miss", zap.String("key", key))
	} else {
		s.logger.Debug("cache hit", zap.String("key", key))
	}
	return e.value, nil
}

// Forget removes key. Missing keys are ignored.
func (s *SturdycStore) Forget(ctx context.Context, key string) error {
	s.client.Delete(key)
	return nil
}

// Has reports whether a live entry exists for key.
func (s *SturdycStore) Has(ctx context.Context, key string) (bool, error) {
	e, ok := s.client.Get(key)
	if !ok {
		return false, nil
	}
	return !e.expired(s.now()), nil
}

// Size returns the number of entries held by the client, expired ones included.
func (s *SturdycStore) Size() int {
	return s.client.Size()
}
