package model

const (
	TableUtxos              = "utxos"
	TableAmbassadorProfiles = "ambassador_profiles"
)

// One on-chain output copied into the local cache.
// (TxHash, OutputIndex) is expected to be unique, but nothing enforces it.
type CachedRecord struct {
	Id          int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TxHash      string   `json:"tx_hash"`
	OutputIndex int      `json:"output_index"`
	Address     string   `json:"address"`
	Amount      string   `json:"amount"`
	DataHash    *string  `json:"data_hash"`
	Datum       *string  `json:"datum"`
	Category    Category `json:"category"`
	Metadata    *string  `json:"metadata"`
}

func (CachedRecord) TableName() string {
	return TableUtxos
}

// Profile denormalized from a member record
type AmbassadorProfile struct {
	Id            int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	TxHash        string `json:"tx_hash"`
	OutputIndex   int    `json:"output_index"`
	WalletAddress string `json:"wallet_address"`
	FullName      string `json:"full_name"`
	DisplayName   string `json:"display_name"`
	EmailAddress  string `json:"email_address"`
	Bio           string `json:"bio"`
	TotalPoints   int64  `json:"total_points"`
}

func (AmbassadorProfile) TableName() string {
	return TableAmbassadorProfiles
}
