package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/exp/slices"
)

var Networks = []string{"mainnet", "preprod", "preview"}

type Blockfrost struct {
	// Cardano network: mainnet, preprod or preview
	Network string

	// Overrides the url derived from the network
	Url string

	// Per-network API keys, sent as the project_id header
	MainnetProjectId string
	PreprodProjectId string
	PreviewProjectId string

	// Time limit for a single request
	RequestTimeout time.Duration

	// Requests per second allowed by the provider
	RateLimit float64

	// Max requests sent in a burst
	RateBurst int

	// Number of items requested per page
	PageSize int

	// Max number of pages fetched for one listing, 0 is no limit
	MaxPages int

	// 0 disables retrying
	RetryCount int

	// How long fetched UTXOs are cached. They never change once created.
	UtxoCacheTTL time.Duration
}

func setBlockfrostDefaults() {
	viper.SetDefault("Blockfrost.Network", "preprod")
	viper.SetDefault("Blockfrost.Url", "")
	viper.SetDefault("Blockfrost.MainnetProjectId", "")
	viper.SetDefault("Blockfrost.PreprodProjectId", "")
	viper.SetDefault("Blockfrost.PreviewProjectId", "")
	viper.SetDefault("Blockfrost.RequestTimeout", "30s")
	viper.SetDefault("Blockfrost.RateLimit", "10")
	viper.SetDefault("Blockfrost.RateBurst", "10")
	viper.SetDefault("Blockfrost.PageSize", "100")
	viper.SetDefault("Blockfrost.MaxPages", "0")
	viper.SetDefault("Blockfrost.RetryCount", "0")
	viper.SetDefault("Blockfrost.UtxoCacheTTL", "1h")
}

func (self *Blockfrost) validate() error {
	if !slices.Contains(Networks, self.Network) {
		return fmt.Errorf("unknown network %q", self.Network)
	}
	if self.PageSize <= 0 || self.PageSize > 100 {
		return fmt.Errorf("page size must be between 1 and 100, got %d", self.PageSize)
	}
	return nil
}

// Base url of the API for the configured network
func (self *Blockfrost) BaseUrl() string {
	if self.Url != "" {
		return self.Url
	}
	return fmt.Sprintf("https://cardano-%s.blockfrost.io/api/v0", self.Network)
}

// API key for the configured network
func (self *Blockfrost) ProjectId() string {
	switch self.Network {
	case "mainnet":
		return self.MainnetProjectId
	case "preview":
		return self.PreviewProjectId
	default:
		return self.PreprodProjectId
	}
}
