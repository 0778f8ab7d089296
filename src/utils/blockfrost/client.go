package blockfrost

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/patrickmn/go-cache"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring"
)

// Client of the Blockfrost Cardano API
type Client struct {
	*BaseClient

	// Outputs never change once created
	utxos *cache.Cache
}

func NewClient(config *config.Blockfrost) (self *Client) {
	self = new(Client)
	self.BaseClient = newBaseClient(config)
	self.utxos = cache.New(config.UtxoCacheTTL, 2*config.UtxoCacheTTL)
	return
}

func (self *Client) WithMonitor(monitor monitoring.Monitor) *Client {
	self.BaseClient.WithMonitor(monitor)
	return self
}

// Unspent outputs locked at the address. An address the provider never saw has no outputs.
func (self *Client) GetAddressUtxos(ctx context.Context, address string) (out []Utxo, err error) {
	out = make([]Utxo, 0)
	err = self.paginate(ctx, "/addresses/{address}/utxos", address, func(page int) (n int, err error) {
		var utxos []Utxo
		_, err = self.client.R().
			SetContext(ctx).
			SetPathParam("address", address).
			SetQueryParams(self.pageParams(page)).
			SetResult(&utxos).
			ForceContentType("application/json").
			Get("/addresses/{address}/utxos")
		if err != nil {
			return
		}
		out = append(out, utxos...)
		return len(utxos), nil
	})
	if errors.Is(err, ErrNotFound) {
		return make([]Utxo, 0), nil
	}
	return
}

// Transactions that touched the address, oldest first
func (self *Client) GetAddressTransactions(ctx context.Context, address string) (out []Transaction, err error) {
	out = make([]Transaction, 0)
	err = self.paginate(ctx, "/addresses/{address}/transactions", address, func(page int) (n int, err error) {
		var txs []Transaction
		_, err = self.client.R().
			SetContext(ctx).
			SetPathParam("address", address).
			SetQueryParams(self.pageParams(page)).
			SetResult(&txs).
			ForceContentType("application/json").
			Get("/addresses/{address}/transactions")
		if err != nil {
			return
		}
		out = append(out, txs...)
		return len(txs), nil
	})
	if errors.Is(err, ErrNotFound) {
		return make([]Transaction, 0), nil
	}
	return
}

// Single output of a transaction, ErrNotFound if the transaction has no such output
func (self *Client) GetUtxo(ctx context.Context, txHash string, outputIndex int) (out *Utxo, err error) {
	key := txHash + "#" + strconv.Itoa(outputIndex)
	if cached, ok := self.utxos.Get(key); ok {
		if self.monitor != nil {
			self.monitor.GetReport().Blockfrost.State.UtxoCacheHits.Inc()
		}
		return cached.(*Utxo), nil
	}

	resp, err := self.client.R().
		SetContext(ctx).
		SetPathParam("hash", txHash).
		SetResult(&txUtxos{}).
		ForceContentType("application/json").
		Get("/txs/{hash}/utxos")
	if err != nil {
		return
	}

	tx, ok := resp.Result().(*txUtxos)
	if !ok {
		err = ErrFailedToParse
		return
	}

	for _, output := range tx.Outputs {
		if output.OutputIndex != outputIndex || output.Collateral {
			continue
		}
		out = &Utxo{
			Address:             output.Address,
			TxHash:              txHash,
			OutputIndex:         output.OutputIndex,
			Amount:              output.Amount,
			DataHash:            output.DataHash,
			InlineDatum:         output.InlineDatum,
			ReferenceScriptHash: output.ReferenceScriptHash,
		}
		self.utxos.SetDefault(key, out)
		return
	}

	err = fmt.Errorf("%w: output %s", ErrNotFound, key)
	return
}

// CBOR of a datum known only by its hash
func (self *Client) GetDatumCbor(ctx context.Context, datumHash string) (out string, err error) {
	resp, err := self.client.R().
		SetContext(ctx).
		SetPathParam("hash", datumHash).
		SetResult(&datumCbor{}).
		ForceContentType("application/json").
		Get("/scripts/datum/{hash}/cbor")
	if err != nil {
		return
	}

	datum, ok := resp.Result().(*datumCbor)
	if !ok {
		err = ErrFailedToParse
		return
	}
	return datum.Cbor, nil
}

func (self *Client) pageParams(page int) map[string]string {
	return map[string]string{
		"page":  strconv.Itoa(page),
		"count": strconv.Itoa(self.config.PageSize),
		"order": "asc",
	}
}

// Fetches pages till a short page or the page limit
func (self *Client) paginate(ctx context.Context, endpoint, address string, fetch func(page int) (int, error)) (err error) {
	for page := 1; self.config.MaxPages == 0 || page <= self.config.MaxPages; page++ {
		var n int
		n, err = fetch(page)
		if err != nil {
			return
		}

		if n < self.config.PageSize {
			return
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	self.log.WithField("endpoint", endpoint).
		WithField("address", address).
		WithField("max_pages", self.config.MaxPages).
		Warn("Page limit reached, listing is truncated")
	return
}
