package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

var StorageTypes = []string{"file", "memory", "redis", "postgres"}

type Storage struct {
	// One of: file, memory, redis, postgres
	Type string

	// Directory used by the file storage
	Dir string

	// Prefix prepended to keys in shared backends
	KeyPrefix string

	// Time limit for connecting to the backend, retried with backoff
	ConnectTimeout time.Duration
}

func setStorageDefaults() {
	viper.SetDefault("Storage.Type", "file")
	viper.SetDefault("Storage.Dir", "./data")
	viper.SetDefault("Storage.KeyPrefix", "ambassador.")
	viper.SetDefault("Storage.ConnectTimeout", "1m")
}

func (self *Storage) validate() error {
	if !slices.Contains(StorageTypes, self.Type) {
		return fmt.Errorf("unknown storage type %q", self.Type)
	}
	return nil
}
