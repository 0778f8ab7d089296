package monitor_syncer

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Collector struct {
	monitor *Monitor

	// Run
	UpForSeconds *prometheus.Desc

	// Blockfrost
	BlockfrostRequests        *prometheus.Desc
	BlockfrostUtxoCacheHits   *prometheus.Desc
	BlockfrostFailedRequests  *prometheus.Desc
	BlockfrostRateLimitErrors *prometheus.Desc

	// Decoder
	DecoderDecoded         *prometheus.Desc
	DecoderShapeMismatches *prometheus.Desc

	// Collector
	CollectorRequests            *prometheus.Desc
	CollectorRecordsReturned     *prometheus.Desc
	CollectorRecordsRejected     *prometheus.Desc
	CollectorUnknownContext      *prometheus.Desc
	CollectorProviderFailures    *prometheus.Desc
	CollectorDatumLookupFailures *prometheus.Desc

	// Worker
	WorkerMessages              *prometheus.Desc
	WorkerSyncPasses            *prometheus.Desc
	WorkerRowsInserted          *prometheus.Desc
	WorkerLastExportSize        *prometheus.Desc
	WorkerAverageSyncDurationMs *prometheus.Desc
	WorkerFetchFailures         *prometheus.Desc
	WorkerInsertFailures        *prometheus.Desc
	WorkerExportFailures        *prometheus.Desc
	WorkerDroppedReplies        *prometheus.Desc

	// State
	StateSyncsStarted      *prometheus.Desc
	StateSyncsApplied      *prometheus.Desc
	StateStaleResults      *prometheus.Desc
	StatePendingSyncs      *prometheus.Desc
	StateLastSyncTimestamp *prometheus.Desc
	StateSubscribers       *prometheus.Desc
	StateLoadFailures      *prometheus.Desc
	StatePersistFailures   *prometheus.Desc
	StateSyncTimeouts      *prometheus.Desc
}

func NewCollector() *Collector {
	labels := prometheus.Labels{
		"app": "ambassador-syncer",
	}

	return &Collector{
		// Run
		UpForSeconds: prometheus.NewDesc("up_for_seconds", "", nil, labels),

		// Blockfrost
		BlockfrostRequests:        prometheus.NewDesc("blockfrost_requests", "", nil, labels),
		BlockfrostUtxoCacheHits:   prometheus.NewDesc("blockfrost_utxo_cache_hits", "", nil, labels),
		BlockfrostFailedRequests:  prometheus.NewDesc("error_blockfrost_failed_requests", "", nil, labels),
		BlockfrostRateLimitErrors: prometheus.NewDesc("error_blockfrost_rate_limit", "", nil, labels),

		// Decoder
		DecoderDecoded:         prometheus.NewDesc("decoder_decoded", "", nil, labels),
		DecoderShapeMismatches: prometheus.NewDesc("error_decoder_shape_mismatches", "", nil, labels),

		// Collector
		CollectorRequests:            prometheus.NewDesc("collector_requests", "", nil, labels),
		CollectorRecordsReturned:     prometheus.NewDesc("collector_records_returned", "", nil, labels),
		CollectorRecordsRejected:     prometheus.NewDesc("collector_records_rejected", "", nil, labels),
		CollectorUnknownContext:      prometheus.NewDesc("error_collector_unknown_context", "", nil, labels),
		CollectorProviderFailures:    prometheus.NewDesc("error_collector_provider_failures", "", nil, labels),
		CollectorDatumLookupFailures: prometheus.NewDesc("error_collector_datum_lookup_failures", "", nil, labels),

		// Worker
		WorkerMessages:              prometheus.NewDesc("worker_messages", "", nil, labels),
		WorkerSyncPasses:            prometheus.NewDesc("worker_sync_passes", "", nil, labels),
		WorkerRowsInserted:          prometheus.NewDesc("worker_rows_inserted", "", nil, labels),
		WorkerLastExportSize:        prometheus.NewDesc("worker_last_export_size", "", nil, labels),
		WorkerAverageSyncDurationMs: prometheus.NewDesc("worker_average_sync_duration_ms", "", nil, labels),
		WorkerFetchFailures:         prometheus.NewDesc("error_worker_fetch_failures", "", nil, labels),
		WorkerInsertFailures:        prometheus.NewDesc("error_worker_insert_failures", "", nil, labels),
		WorkerExportFailures:        prometheus.NewDesc("error_worker_export_failures", "", nil, labels),
		WorkerDroppedReplies:        prometheus.NewDesc("error_worker_dropped_replies", "", nil, labels),

		// State
		StateSyncsStarted:      prometheus.NewDesc("state_syncs_started", "", nil, labels),
		StateSyncsApplied:      prometheus.NewDesc("state_syncs_applied", "", nil, labels),
		StateStaleResults:      prometheus.NewDesc("state_stale_results", "", nil, labels),
		StatePendingSyncs:      prometheus.NewDesc("state_pending_syncs", "", nil, labels),
		StateLastSyncTimestamp: prometheus.NewDesc("state_last_sync_timestamp", "", nil, labels),
		StateSubscribers:       prometheus.NewDesc("state_subscribers", "", nil, labels),
		StateLoadFailures:      prometheus.NewDesc("error_state_load_failures", "", nil, labels),
		StatePersistFailures:   prometheus.NewDesc("error_state_persist_failures", "", nil, labels),
		StateSyncTimeouts:      prometheus.NewDesc("error_state_sync_timeouts", "", nil, labels),
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	// Run
	ch <- self.UpForSeconds

	// Blockfrost
	ch <- self.BlockfrostRequests
	ch <- self.BlockfrostUtxoCacheHits
	ch <- self.BlockfrostFailedRequests
	ch <- self.BlockfrostRateLimitErrors

	// Decoder
	ch <- self.DecoderDecoded
	ch <- self.DecoderShapeMismatches

	// Collector
	ch <- self.CollectorRequests
	ch <- self.CollectorRecordsReturned
	ch <- self.CollectorRecordsRejected
	ch <- self.CollectorUnknownContext
	ch <- self.CollectorProviderFailures
	ch <- self.CollectorDatumLookupFailures

	// Worker
	ch <- self.WorkerMessages
	ch <- self.WorkerSyncPasses
	ch <- self.WorkerRowsInserted
	ch <- self.WorkerLastExportSize
	ch <- self.WorkerAverageSyncDurationMs
	ch <- self.WorkerFetchFailures
	ch <- self.WorkerInsertFailures
	ch <- self.WorkerExportFailures
	ch <- self.WorkerDroppedReplies

	// State
	ch <- self.StateSyncsStarted
	ch <- self.StateSyncsApplied
	ch <- self.StateStaleResults
	ch <- self.StatePendingSyncs
	ch <- self.StateLastSyncTimestamp
	ch <- self.StateSubscribers
	ch <- self.StateLoadFailures
	ch <- self.StatePersistFailures
	ch <- self.StateSyncTimeouts
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	r := self.monitor.GetReport()

	ch <- prometheus.MustNewConstMetric(self.UpForSeconds, prometheus.GaugeValue, float64(r.Run.State.UpForSeconds.Load()))

	ch <- prometheus.MustNewConstMetric(self.BlockfrostRequests, prometheus.CounterValue, float64(r.Blockfrost.State.Requests.Load()))
	ch <- prometheus.MustNewConstMetric(self.BlockfrostUtxoCacheHits, prometheus.CounterValue, float64(r.Blockfrost.State.UtxoCacheHits.Load()))
	ch <- prometheus.MustNewConstMetric(self.BlockfrostFailedRequests, prometheus.CounterValue, float64(r.Blockfrost.Errors.FailedRequests.Load()))
	ch <- prometheus.MustNewConstMetric(self.BlockfrostRateLimitErrors, prometheus.CounterValue, float64(r.Blockfrost.Errors.RateLimitErrors.Load()))

	ch <- prometheus.MustNewConstMetric(self.DecoderDecoded, prometheus.CounterValue, float64(r.Decoder.State.Decoded.Load()))
	ch <- prometheus.MustNewConstMetric(self.DecoderShapeMismatches, prometheus.CounterValue, float64(r.Decoder.Errors.ShapeMismatches.Load()))

	ch <- prometheus.MustNewConstMetric(self.CollectorRequests, prometheus.CounterValue, float64(r.Collector.State.Requests.Load()))
	ch <- prometheus.MustNewConstMetric(self.CollectorRecordsReturned, prometheus.CounterValue, float64(r.Collector.State.RecordsReturned.Load()))
	ch <- prometheus.MustNewConstMetric(self.CollectorRecordsRejected, prometheus.CounterValue, float64(r.Collector.State.RecordsRejected.Load()))
	ch <- prometheus.MustNewConstMetric(self.CollectorUnknownContext, prometheus.CounterValue, float64(r.Collector.Errors.UnknownContext.Load()))
	ch <- prometheus.MustNewConstMetric(self.CollectorProviderFailures, prometheus.CounterValue, float64(r.Collector.Errors.ProviderFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.CollectorDatumLookupFailures, prometheus.CounterValue, float64(r.Collector.Errors.DatumLookupFailures.Load()))

	ch <- prometheus.MustNewConstMetric(self.WorkerMessages, prometheus.CounterValue, float64(r.Worker.State.Messages.Load()))
	ch <- prometheus.MustNewConstMetric(self.WorkerSyncPasses, prometheus.CounterValue, float64(r.Worker.State.SyncPasses.Load()))
	ch <- prometheus.MustNewConstMetric(self.WorkerRowsInserted, prometheus.CounterValue, float64(r.Worker.State.RowsInserted.Load()))
	ch <- prometheus.MustNewConstMetric(self.WorkerLastExportSize, prometheus.GaugeValue, float64(r.Worker.State.LastExportSize.Load()))
	ch <- prometheus.MustNewConstMetric(self.WorkerAverageSyncDurationMs, prometheus.GaugeValue, r.Worker.State.AverageSyncDurationMs.Load())
	ch <- prometheus.MustNewConstMetric(self.WorkerFetchFailures, prometheus.CounterValue, float64(r.Worker.Errors.FetchFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.WorkerInsertFailures, prometheus.CounterValue, float64(r.Worker.Errors.InsertFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.WorkerExportFailures, prometheus.CounterValue, float64(r.Worker.Errors.ExportFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.WorkerDroppedReplies, prometheus.CounterValue, float64(r.Worker.Errors.DroppedReplies.Load()))

	ch <- prometheus.MustNewConstMetric(self.StateSyncsStarted, prometheus.CounterValue, float64(r.State.State.SyncsStarted.Load()))
	ch <- prometheus.MustNewConstMetric(self.StateSyncsApplied, prometheus.CounterValue, float64(r.State.State.SyncsApplied.Load()))
	ch <- prometheus.MustNewConstMetric(self.StateStaleResults, prometheus.CounterValue, float64(r.State.State.StaleResults.Load()))
	ch <- prometheus.MustNewConstMetric(self.StatePendingSyncs, prometheus.GaugeValue, float64(r.State.State.PendingSyncs.Load()))
	ch <- prometheus.MustNewConstMetric(self.StateLastSyncTimestamp, prometheus.GaugeValue, float64(r.State.State.LastSyncTimestamp.Load()))
	ch <- prometheus.MustNewConstMetric(self.StateSubscribers, prometheus.GaugeValue, float64(r.State.State.Subscribers.Load()))
	ch <- prometheus.MustNewConstMetric(self.StateLoadFailures, prometheus.CounterValue, float64(r.State.Errors.LoadFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.StatePersistFailures, prometheus.CounterValue, float64(r.State.Errors.PersistFailures.Load()))
	ch <- prometheus.MustNewConstMetric(self.StateSyncTimeouts, prometheus.CounterValue, float64(r.State.Errors.SyncTimeouts.Load()))
}
