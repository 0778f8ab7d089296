package config

import (
	"github.com/spf13/viper"
)

type Collector struct {
	// Script addresses holding the records of each category
	MembershipIntentAddress  string
	MemberAddress            string
	ProposalAddress          string
	ProposalIntentAddress    string
	SignOfApprovalAddress    string
	AmbassadorProfileAddress string

	// Max number of datum lookups running in parallel for one request
	MaxParallelDatumLookups int
}

func setCollectorDefaults() {
	viper.SetDefault("Collector.MembershipIntentAddress", "")
	viper.SetDefault("Collector.MemberAddress", "")
	viper.SetDefault("Collector.ProposalAddress", "")
	viper.SetDefault("Collector.ProposalIntentAddress", "")
	viper.SetDefault("Collector.SignOfApprovalAddress", "")
	viper.SetDefault("Collector.AmbassadorProfileAddress", "")
	viper.SetDefault("Collector.MaxParallelDatumLookups", "5")
}
