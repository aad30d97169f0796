package config

import (
	"time"

	"github.com/spf13/viper"
)

type Cache struct {
	v *viper.Viper
}

var _ CacheConfig = Cache{}

// GetEventsStaleInterval is the maximum age of the cached event list before a poll is due.
func (c Cache) GetEventsStaleInterval() time.Duration {
	return c.v.GetDuration("cache.events.stale")
}

func (c Cache) GetLocationsStaleInterval() time.Duration {
	return c.v.GetDuration("cache.locations.stale")
}

// GetSnapshotPath is the sqlite file holding the last fetched collections. Empty disables snapshots.
func (c Cache) GetSnapshotPath() string {
	return c.v.GetString("cache.snapshot")
}
