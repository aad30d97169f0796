package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetDataFolder() string
}

type EnvVars struct {
	v *viper.Viper
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.v.GetString("app.name")
}

func (e EnvVars) GetEnv() string {
	return e.v.GetString("app.env")
}

func (e EnvVars) GetDataFolder() string {
	return filepath.Clean(e.v.GetString("app.datafolder"))
}
