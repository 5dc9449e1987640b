package config

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/goliatone/go-metafields/cache"
	"github.com/goliatone/go-metafields/keys"
	"github.com/goliatone/go-metafields/store"
	"github.com/goliatone/go-metafields/values"
)

// Cache store backends.
const (
	CacheStoreMemory = "memory"
	CacheStoreRedis  = "redis"
)

// DefaultCacheKeyPrefix is prepended to every cache key.
const DefaultCacheKeyPrefix = "Metafields"

// ErrInvalidConfiguration is matched by every InvalidConfigurationError.
var ErrInvalidConfiguration = errors.New("metafields: invalid configuration")

// InvalidConfigurationError reports a configuration value the engine cannot run with.
type InvalidConfigurationError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *InvalidConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("metafields: invalid configuration: %v", e.Err)
	}
	return fmt.Sprintf("metafields: invalid configuration %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying validation error.
func (e *InvalidConfigurationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrInvalidConfiguration) hold.
func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// DatabaseConfig selects the record store connection.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// Config is read-only to the engine once built.
type Config struct {
	Table       string `mapstructure:"table"`
	OwnerColumn string `mapstructure:"model_column_name"`

	// AllowedTypes holds one sample value per user type the standard
	// serializer may reconstruct. Types cannot be named in a file, so this
	// is only set from code.
	AllowedTypes []any `mapstructure:"-"`

	DefaultSerializer string        `mapstructure:"value_serializer"`
	CacheEnabled      bool          `mapstructure:"cache_enabled"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	CacheKeyPrefix    string        `mapstructure:"cache_key_prefix"`
	AllFieldsKey      string        `mapstructure:"all_metafields_cache_key"`
	BlockedKeys       []string      `mapstructure:"not_allowed_keys"`

	CacheStore string `mapstructure:"cache_store"`
	RedisURL   string `mapstructure:"redis_url"`

	Database DatabaseConfig `mapstructure:"database"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Table:             store.DefaultTable,
		OwnerColumn:       store.DefaultOwnerColumn,
		DefaultSerializer: values.StandardID,
		CacheEnabled:      true,
		CacheTTL:          0,
		CacheKeyPrefix:    DefaultCacheKeyPrefix,
		AllFieldsKey:      keys.DefaultAllFieldsKey,
		CacheStore:        CacheStoreMemory,
		Database: DatabaseConfig{
			Driver: store.DriverSQLite,
			DSN:    "metafields.db",
		},
	}
}

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks every field. The failing field that sorts first is
// reported in an InvalidConfigurationError.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Table, validation.Required, validation.Match(identifier)),
		validation.Field(&c.OwnerColumn, validation.Required, validation.Match(identifier)),
		validation.Field(&c.DefaultSerializer, validation.Required),
		validation.Field(&c.CacheTTL, validation.Min(time.Duration(0))),
		validation.Field(&c.AllFieldsKey, validation.Required),
		validation.Field(&c.BlockedKeys, validation.Each(validation.Required)),
		validation.Field(&c.CacheStore, validation.In(CacheStoreMemory, CacheStoreRedis)),
		validation.Field(&c.RedisURL, validation.When(c.CacheStore == CacheStoreRedis, validation.Required)),
	)
	if err != nil {
		var fields validation.Errors
		if errors.As(err, &fields) && len(fields) > 0 {
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}
			sort.Strings(names)
			return &InvalidConfigurationError{Field: names[0], Err: fields[names[0]]}
		}
		return &InvalidConfigurationError{Err: err}
	}
	return nil
}

// Normalizer builds the key normalizer for this configuration.
func (c Config) Normalizer() *keys.Normalizer {
	return keys.NewNormalizer(c.AllFieldsKey, c.BlockedKeys)
}

// TypeRegistry builds the standard serializer allow-list.
func (c Config) TypeRegistry() *values.TypeRegistry {
	return values.NewTypeRegistry(c.AllowedTypes...)
}

// CacheSettings returns the global cache policy.
func (c Config) CacheSettings() cache.Settings {
	return cache.Settings{
		Enabled: c.CacheEnabled,
		TTL:     c.CacheTTL,
		Prefix:  c.CacheKeyPrefix,
	}
}

// StoreOptions returns the record store options.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Table:       c.Table,
		OwnerColumn: c.OwnerColumn,
	}
}
