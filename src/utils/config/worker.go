package config

import (
	"time"

	"github.com/spf13/viper"
)

type Worker struct {
	// Base url of the server exposing /api/utxos
	ApiBaseUrl string

	// Max number of category fetches running at once in a seedAll pass
	MaxParallelFetches int

	// Time limit for a single call to the collector endpoint
	RequestTimeout time.Duration

	// Size of the incoming message channel
	InputChannelSize int
}

func setWorkerDefaults() {
	viper.SetDefault("Worker.ApiBaseUrl", "http://127.0.0.1:3000")
	viper.SetDefault("Worker.MaxParallelFetches", "5")
	viper.SetDefault("Worker.RequestTimeout", "2m")
	viper.SetDefault("Worker.InputChannelSize", "10")
}
