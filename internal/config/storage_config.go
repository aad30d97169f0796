package config

import (
	"path/filepath"

	"github.com/spf13/viper"
)

type StorageBackend string

const (
	StorageMemory StorageBackend = "memory"
	StorageFile   StorageBackend = "file"
	StorageRedis  StorageBackend = "redis"
)

type StorageConfig interface {
	GetStorageBackend() StorageBackend
	GetVaultPath() string
	GetVaultPassphrase() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Storage struct {
	v *viper.Viper
}

var _ StorageConfig = Storage{}

func (s Storage) GetStorageBackend() StorageBackend {
	return StorageBackend(s.v.GetString("storage.backend"))
}

// GetVaultPath defaults to credentials.vault inside the data folder.
func (s Storage) GetVaultPath() string {
	if p := s.v.GetString("storage.file.path"); p != "" {
		return p
	}
	return filepath.Join(s.v.GetString("app.datafolder"), "credentials.vault")
}

func (s Storage) GetVaultPassphrase() string {
	return s.v.GetString("storage.file.passphrase")
}

func (s Storage) GetRedisAddr() string {
	return s.v.GetString("storage.redis.addr")
}

func (s Storage) GetRedisPassword() string {
	return s.v.GetString("storage.redis.password")
}

func (s Storage) GetRedisDB() int {
	return s.v.GetInt("storage.redis.db")
}

func (s Storage) GetRedisPrefix() string {
	return s.v.GetString("storage.redis.prefix")
}
