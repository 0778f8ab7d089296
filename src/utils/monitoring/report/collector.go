package report

import "go.uber.org/atomic"

type CollectorErrors struct {
	UnknownContext      atomic.Uint64 `json:"unknown_context"`
	ProviderFailures    atomic.Uint64 `json:"provider_failures"`
	DatumLookupFailures atomic.Uint64 `json:"datum_lookup_failures"`
}

type CollectorState struct {
	Requests        atomic.Uint64 `json:"requests"`
	RecordsReturned atomic.Uint64 `json:"records_returned"`
	RecordsRejected atomic.Uint64 `json:"records_rejected"`
}

type CollectorReport struct {
	State  CollectorState  `json:"state"`
	Errors CollectorErrors `json:"errors"`
}
