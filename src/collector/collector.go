package collector

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/ambassador-syncer/src/utils/blockfrost"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/datum"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/report"
	"golang.org/x/sync/errgroup"
)

var (
	ErrNoAddress = errors.New("no address configured for context")
	ErrProvider  = errors.New("data provider failure")
)

// Script address holding the records of each category
var addresses = map[model.Category]func(*config.Collector) string{
	model.CategoryMembershipIntent:  func(c *config.Collector) string { return c.MembershipIntentAddress },
	model.CategoryMember:            func(c *config.Collector) string { return c.MemberAddress },
	model.CategoryProposal:          func(c *config.Collector) string { return c.ProposalAddress },
	model.CategoryProposalIntent:    func(c *config.Collector) string { return c.ProposalIntentAddress },
	model.CategorySignOfApproval:    func(c *config.Collector) string { return c.SignOfApprovalAddress },
	model.CategoryAmbassadorProfile: func(c *config.Collector) string { return c.AmbassadorProfileAddress },
}

// Fetches records of a category from the data provider and keeps only those whose datum decodes
type Collector struct {
	config  *config.Collector
	log     *logrus.Entry
	client  *blockfrost.Client
	decoder *datum.Decoder

	// Counters of the monitor, if one is set
	report *report.CollectorReport
}

func NewCollector(config *config.Collector, client *blockfrost.Client) (self *Collector) {
	self = new(Collector)
	self.config = config
	self.client = client
	self.log = logger.NewSublogger("collector")
	self.decoder = datum.NewDecoder()
	self.report = &report.CollectorReport{}
	return
}

func (self *Collector) WithMonitor(monitor monitoring.Monitor) *Collector {
	self.report = monitor.GetReport().Collector
	self.decoder.WithMonitor(monitor)
	return self
}

// Address queried for the category, an explicit address takes precedence
func (self *Collector) Address(category model.Category, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	f, ok := addresses[category]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownCategory, category)
	}
	address := f(self.config)
	if address == "" {
		return "", fmt.Errorf("%w: %s", ErrNoAddress, category)
	}
	return address, nil
}

// Records of the context in provider order. Outputs without a matching datum are dropped.
func (self *Collector) Collect(ctx context.Context, contextName, address string) (out []*RawRecord, err error) {
	self.report.State.Requests.Inc()

	category, err := model.ParseCategory(contextName)
	if err != nil {
		self.report.Errors.UnknownContext.Inc()
		return
	}

	address, err = self.Address(category, address)
	if err != nil {
		return
	}

	log := self.log.WithField("context", category).WithField("address", address)

	utxos, err := self.client.GetAddressUtxos(ctx, address)
	if err != nil {
		self.report.Errors.ProviderFailures.Inc()
		log.WithError(err).Warn("Failed to fetch outputs")
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	records := make([]*RawRecord, len(utxos))
	for i := range utxos {
		records[i] = newRawRecord(&utxos[i])
	}

	err = self.resolveDatums(ctx, records)
	if err != nil {
		self.report.Errors.ProviderFailures.Inc()
		log.WithError(err).Warn("Failed to resolve datums")
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	out = make([]*RawRecord, 0, len(records))
	for _, record := range records {
		if !self.decode(category, record) {
			continue
		}
		out = append(out, record)
	}

	self.report.State.RecordsReturned.Add(uint64(len(out)))
	self.report.State.RecordsRejected.Add(uint64(len(records) - len(out)))

	log.WithField("fetched", len(records)).WithField("returned", len(out)).Debug("Collected records")
	return
}

// Single output. With a context the datum has to match its layout.
func (self *Collector) Get(ctx context.Context, txHash string, outputIndex int, contextName string) (out *RawRecord, err error) {
	var category model.Category
	if contextName != "" {
		category, err = model.ParseCategory(contextName)
		if err != nil {
			return
		}
	}

	utxo, err := self.client.GetUtxo(ctx, txHash, outputIndex)
	if err != nil {
		if errors.Is(err, blockfrost.ErrNotFound) {
			return
		}
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	out = newRawRecord(utxo)
	err = self.resolveDatums(ctx, []*RawRecord{out})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if category != "" && !self.decode(category, out) {
		return nil, datum.ErrShapeMismatch
	}
	return
}

// Transactions that touched the address
func (self *Collector) Transactions(ctx context.Context, address string) (out []blockfrost.Transaction, err error) {
	out, err = self.client.GetAddressTransactions(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	return
}

// Fetches datums that are only referenced by hash
func (self *Collector) resolveDatums(ctx context.Context, records []*RawRecord) error {
	g, ctx := errgroup.WithContext(ctx)
	if self.config.MaxParallelDatumLookups > 0 {
		g.SetLimit(self.config.MaxParallelDatumLookups)
	}

	for _, record := range records {
		if record.InlineDatum != nil || record.DataHash == nil {
			continue
		}

		record := record
		g.Go(func() error {
			cbor, err := self.client.GetDatumCbor(ctx, *record.DataHash)
			if err != nil {
				if errors.Is(err, blockfrost.ErrNotFound) {
					// Datum never published, the record gets dropped
					self.report.Errors.DatumLookupFailures.Inc()
					return nil
				}
				return err
			}
			record.InlineDatum = &cbor
			return nil
		})
	}

	return g.Wait()
}

func (self *Collector) decode(category model.Category, record *RawRecord) bool {
	if record.InlineDatum == nil {
		return false
	}

	decoded := self.decoder.DecodeHex(category, *record.InlineDatum)
	if decoded == nil {
		return false
	}

	metadata, err := decoded.JSON()
	if err != nil {
		return false
	}
	record.Metadata = []byte(metadata)
	return true
}
