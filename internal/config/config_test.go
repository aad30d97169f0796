package config_test

import (
	"testing"
	"time"

	"github.com/MensaSverige/swagapp-sub001/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c := config.FromViper(viper.New())

	require.Equal(t, 5*time.Minute, c.GetEventsStaleInterval())
	require.Equal(t, 5*time.Minute, c.GetLocationsStaleInterval())
	require.Equal(t, 3*time.Second, c.GetStartupTimeout())
	require.Equal(t, "/refresh_token", c.GetRefreshPath())
	require.Equal(t, config.StorageFile, c.GetStorageBackend())
	require.Equal(t, "data/credentials.vault", c.GetVaultPath())
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	v.Set("api.baseurl", "http://localhost:5000/")
	v.Set("cache.events.stale", "30s")
	v.Set("storage.backend", "redis")
	c := config.FromViper(v)

	require.Equal(t, "http://localhost:5000", c.GetAPIBaseURL())
	require.Equal(t, 30*time.Second, c.GetEventsStaleInterval())
	require.Equal(t, config.StorageRedis, c.GetStorageBackend())
}
