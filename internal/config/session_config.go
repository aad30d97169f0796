package config

import (
	"time"

	"github.com/spf13/viper"
)

type SessionConfig interface {
	GetStartupTimeout() time.Duration
}

type Session struct {
	v *viper.Viper
}

var _ SessionConfig = Session{}

// GetStartupTimeout bounds the silent login performed at process start.
func (s Session) GetStartupTimeout() time.Duration {
	return s.v.GetDuration("session.startuptimeout")
}
