package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type API struct {
	v *viper.Viper
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.v.GetString("api.baseurl"), "/")
}

func (a API) GetRequestTimeout() time.Duration {
	return a.v.GetDuration("api.timeout")
}

func (a API) GetAuthPath() string {
	return a.v.GetString("api.paths.auth")
}

func (a API) GetRefreshPath() string {
	return a.v.GetString("api.paths.refresh")
}

func (a API) GetCurrentUserPath() string {
	return a.v.GetString("api.paths.me")
}

func (a API) GetEventsPath() string {
	return a.v.GetString("api.paths.events")
}

func (a API) GetLocationsPath() string {
	return a.v.GetString("api.paths.locations")
}
