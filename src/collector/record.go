package collector

import (
	"encoding/json"

	"github.com/warp-contracts/ambassador-syncer/src/utils/blockfrost"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
)

// Record returned by the collector endpoint
type RawRecord struct {
	TxHash      string              `json:"tx_hash"`
	OutputIndex int                 `json:"output_index"`
	Address     string              `json:"address"`
	Amount      []blockfrost.Amount `json:"amount"`
	DataHash    *string             `json:"data_hash"`

	// Datum CBOR, looked up by hash when the output doesn't carry it inline
	InlineDatum *string `json:"inline_datum"`

	// Decoded datum
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func newRawRecord(utxo *blockfrost.Utxo) *RawRecord {
	amount := utxo.Amount
	if amount == nil {
		amount = []blockfrost.Amount{}
	}
	return &RawRecord{
		TxHash:      utxo.TxHash,
		OutputIndex: utxo.OutputIndex,
		Address:     utxo.Address,
		Amount:      amount,
		DataHash:    utxo.DataHash,
		InlineDatum: utxo.InlineDatum,
	}
}

// Row stored in the local cache
func (self *RawRecord) ToCachedRecord(category model.Category) (out *model.CachedRecord, err error) {
	amount, err := json.Marshal(self.Amount)
	if err != nil {
		return
	}

	out = &model.CachedRecord{
		TxHash:      self.TxHash,
		OutputIndex: self.OutputIndex,
		Address:     self.Address,
		Amount:      string(amount),
		DataHash:    self.DataHash,
		Datum:       self.InlineDatum,
		Category:    category,
	}

	if len(self.Metadata) > 0 {
		metadata := string(self.Metadata)
		out.Metadata = &metadata
	}
	return
}

// Body of POST /api/utxos
type CollectRequest struct {
	Context string `json:"context" binding:"required"`
	Address string `json:"address,omitempty"`
}

// Body of error responses
type ErrorResponse struct {
	Error string `json:"error"`
}
