package config

import (
	"time"

	"github.com/spf13/viper"
)

type State struct {
	// Key under which the exported store is persisted
	StorageKey string

	// Start a full sync right after the persisted store is loaded
	SyncOnStart bool

	// Cron spec for periodic full syncs, empty disables
	ResyncCron string

	// Max time to wait for the worker's reply
	SyncTimeout time.Duration

	// Size of each subscriber's event channel
	SubscriberChannelSize int
}

func setStateDefaults() {
	viper.SetDefault("State.StorageKey", "utxoDb")
	viper.SetDefault("State.SyncOnStart", "true")
	viper.SetDefault("State.ResyncCron", "")
	viper.SetDefault("State.SyncTimeout", "10m")
	viper.SetDefault("State.SubscriberChannelSize", "10")
}
