package blockfrost

type Amount struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// Unspent output as returned by the provider
type Utxo struct {
	Address             string   `json:"address"`
	TxHash              string   `json:"tx_hash"`
	OutputIndex         int      `json:"output_index"`
	Amount              []Amount `json:"amount"`
	Block               string   `json:"block,omitempty"`
	DataHash            *string  `json:"data_hash"`
	InlineDatum         *string  `json:"inline_datum"`
	ReferenceScriptHash *string  `json:"reference_script_hash,omitempty"`
}

type Transaction struct {
	TxHash      string `json:"tx_hash"`
	TxIndex     int    `json:"tx_index"`
	BlockHeight int64  `json:"block_height"`
	BlockTime   int64  `json:"block_time"`
}

type txOutput struct {
	Address             string   `json:"address"`
	Amount              []Amount `json:"amount"`
	OutputIndex         int      `json:"output_index"`
	DataHash            *string  `json:"data_hash"`
	InlineDatum         *string  `json:"inline_datum"`
	Collateral          bool     `json:"collateral"`
	ReferenceScriptHash *string  `json:"reference_script_hash"`
}

type txUtxos struct {
	Hash    string     `json:"hash"`
	Outputs []txOutput `json:"outputs"`
}

type datumCbor struct {
	Cbor string `json:"cbor"`
}
