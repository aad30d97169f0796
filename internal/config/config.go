package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config interface {
	EnvConfig
	APIConfig
	CacheConfig
	SessionConfig
	StorageConfig
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetRequestTimeout() time.Duration
	GetAuthPath() string
	GetRefreshPath() string
	GetCurrentUserPath() string
	GetEventsPath() string
	GetLocationsPath() string
}

type CacheConfig interface {
	GetEventsStaleInterval() time.Duration
	GetLocationsStaleInterval() time.Duration
	GetSnapshotPath() string
}

type mainConfig struct {
	EnvVars
	API
	Cache
	Session
	Storage
}

const envPrefix = "SWAG"

// New reads configuration from defaults, an optional swag.yaml and SWAG_* environment
// variables, in increasing order of precedence.
func New() (Config, error) {
	v := viper.New()
	v.SetConfigName("swag")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/swag")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("[config.New] load config file: %w", err)
		}
	}
	return FromViper(v), nil
}

// FromViper wraps an already populated viper instance. Missing keys fall back to defaults.
func FromViper(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		API:     API{v: v},
		Cache:   Cache{v: v},
		Session: Session{v: v},
		Storage: Storage{v: v},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "Swag")
	v.SetDefault("app.env", "DEV")
	v.SetDefault("app.datafolder", "./data")

	v.SetDefault("api.baseurl", "https://swag.mensa.se/api")
	v.SetDefault("api.timeout", "15s")
	v.SetDefault("api.paths.auth", "/auth")
	v.SetDefault("api.paths.refresh", "/refresh_token")
	v.SetDefault("api.paths.me", "/users/me")
	v.SetDefault("api.paths.events", "/events")
	v.SetDefault("api.paths.locations", "/users")

	v.SetDefault("cache.events.stale", "5m")
	v.SetDefault("cache.locations.stale", "5m")
	v.SetDefault("cache.snapshot", "")

	v.SetDefault("session.startuptimeout", "3s")

	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.file.path", "")
	v.SetDefault("storage.file.passphrase", "")
	v.SetDefault("storage.redis.addr", "localhost:6379")
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", "swag")
}
