package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. METAFIELDS_CACHE_TTL.
const EnvPrefix = "METAFIELDS"

// Load reads the configuration from path, or from metafields.yaml in the
// working directory when path is empty, layered over Default and
// environment variables. A missing default file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("metafields")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if v.InConfig("not_allowed_keys") {
		switch v.Get("not_allowed_keys").(type) {
		case []any, []string, nil:
		default:
			return nil, &InvalidConfigurationError{
				Field: "not_allowed_keys",
				Err:   errors.New("must be a list"),
			}
		}
	}

	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &InvalidConfigurationError{Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("table", d.Table)
	v.SetDefault("model_column_name", d.OwnerColumn)
	v.SetDefault("value_serializer", d.DefaultSerializer)
	v.SetDefault("cache_enabled", d.CacheEnabled)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("cache_key_prefix", d.CacheKeyPrefix)
	v.SetDefault("all_metafields_cache_key", d.AllFieldsKey)
	v.SetDefault("not_allowed_keys", []string{})
	v.SetDefault("cache_store", d.CacheStore)
	v.SetDefault("redis_url", d.RedisURL)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
}
