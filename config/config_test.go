package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-metafields/keys"
)

type address struct {
	City string
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metafields.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "meta_fields", cfg.Table)
	assert.Equal(t, "model", cfg.OwnerColumn)
	assert.Equal(t, "standard", cfg.DefaultSerializer)
	assert.True(t, cfg.CacheEnabled)
	assert.Zero(t, cfg.CacheTTL, "a zero ttl caches forever")
	assert.Equal(t, keys.DefaultAllFieldsKey, cfg.AllFieldsKey)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "empty table", mutate: func(c *Config) { c.Table = "" }, field: "Table"},
		{name: "table injection", mutate: func(c *Config) { c.Table = "meta; DROP TABLE x" }, field: "Table"},
		{name: "empty owner column", mutate: func(c *Config) { c.OwnerColumn = "" }, field: "OwnerColumn"},
		{name: "negative ttl", mutate: func(c *Config) { c.CacheTTL = -time.Second }, field: "CacheTTL"},
		{name: "empty blocked key", mutate: func(c *Config) { c.BlockedKeys = []string{"ok", ""} }, field: "BlockedKeys"},
		{name: "unknown cache store", mutate: func(c *Config) { c.CacheStore = "memcached" }, field: "CacheStore"},
		{name: "redis without url", mutate: func(c *Config) { c.CacheStore = CacheStoreRedis }, field: "RedisURL"},
		{name: "redis with url", mutate: func(c *Config) { c.CacheStore = CacheStoreRedis; c.RedisURL = "redis://localhost:6379/0" }},
		{name: "no serializer", mutate: func(c *Config) { c.DefaultSerializer = "" }, field: "DefaultSerializer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()

			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
			var cfgErr *InvalidConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestConfig_Builders(t *testing.T) {
	cfg := Default()
	cfg.BlockedKeys = []string{"secret"}
	cfg.AllowedTypes = []any{address{}}
	cfg.CacheTTL = time.Minute

	n := cfg.Normalizer()
	_, err := n.Normalize(keys.Raw("secret"))
	assert.ErrorIs(t, err, keys.ErrInvalidKey)
	assert.Equal(t, keys.DefaultAllFieldsKey, n.AllFields().String())

	_, ok := cfg.TypeRegistry().Lookup("github.com/goliatone/go-metafields/config.address")
	assert.True(t, ok)

	settings := cfg.CacheSettings()
	assert.True(t, settings.Enabled)
	assert.Equal(t, time.Minute, settings.TTL)
	assert.Equal(t, DefaultCacheKeyPrefix, settings.Prefix)

	opts := cfg.StoreOptions()
	assert.Equal(t, "meta_fields", opts.Table)
	assert.Equal(t, "model", opts.OwnerColumn)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
table: car_fields
model_column_name: owner
value_serializer: json
cache_enabled: false
cache_ttl: 10m
cache_key_prefix: Cars
not_allowed_keys:
  - password
  - token
database:
  driver: postgres
  dsn: postgres://localhost/cars
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "car_fields", cfg.Table)
	assert.Equal(t, "owner", cfg.OwnerColumn)
	assert.Equal(t, "json", cfg.DefaultSerializer)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "Cars", cfg.CacheKeyPrefix)
	assert.Equal(t, []string{"password", "token"}, cfg.BlockedKeys)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, keys.DefaultAllFieldsKey, cfg.AllFieldsKey, "unset values keep their defaults")
}

func TestLoad_BlockedKeysMustBeAList(t *testing.T) {
	path := writeConfig(t, "not_allowed_keys: password\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	var cfgErr *InvalidConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "not_allowed_keys", cfgErr.Field)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("METAFIELDS_TABLE", "env_fields")
	t.Setenv("METAFIELDS_CACHE_TTL", "90s")
	t.Setenv("METAFIELDS_DATABASE_DSN", ":memory:")

	path := writeConfig(t, "cache_key_prefix: FromFile\n")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env_fields", cfg.Table)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, ":memory:", cfg.Database.DSN)
	assert.Equal(t, "FromFile", cfg.CacheKeyPrefix)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, "table: \"bad table\"\n")
	_, err := Load(path)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}
