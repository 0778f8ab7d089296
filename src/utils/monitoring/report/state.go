package report

import "go.uber.org/atomic"

type StateErrors struct {
	LoadFailures    atomic.Uint64 `json:"load_failures"`
	PersistFailures atomic.Uint64 `json:"persist_failures"`
	SyncTimeouts    atomic.Uint64 `json:"sync_timeouts"`
	PersistFailing  atomic.Bool   `json:"persist_failing"`
}

type StateState struct {
	SyncsStarted      atomic.Uint64 `json:"syncs_started"`
	SyncsApplied      atomic.Uint64 `json:"syncs_applied"`
	StaleResults      atomic.Uint64 `json:"stale_results"`
	PendingSyncs      atomic.Int64  `json:"pending_syncs"`
	LastSyncTimestamp atomic.Int64  `json:"last_sync_timestamp"`
	Subscribers       atomic.Int64  `json:"subscribers"`
}

type StateReport struct {
	State  StateState  `json:"state"`
	Errors StateErrors `json:"errors"`
}
