package config

import (
	"time"

	"github.com/spf13/viper"
)

type Server struct {
	// Address of the application API
	ListenAddress string

	// Max time a request may take
	RequestTimeout time.Duration

	// Max size of a blob stored through the API
	MaxBlobSize int64
}

func setServerDefaults() {
	viper.SetDefault("Server.ListenAddress", "0.0.0.0:3000")
	viper.SetDefault("Server.RequestTimeout", "2m")
	viper.SetDefault("Server.MaxBlobSize", "65536")
}
