package config

import (
	"github.com/spf13/viper"
)

type Cache struct {
	// Directory for the database files backing the stores. Empty means os.TempDir()
	Dir string

	// Replace rows with the same (tx_hash, output_index, category) instead of appending duplicates
	Upsert bool

	// Rows inserted in one statement
	InsertBatchSize int
}

func setCacheDefaults() {
	viper.SetDefault("Cache.Dir", "")
	viper.SetDefault("Cache.Upsert", "false")
	viper.SetDefault("Cache.InsertBatchSize", "200")
}
