package report

import "go.uber.org/atomic"

type WorkerErrors struct {
	FetchFailures  atomic.Uint64 `json:"fetch_failures"`
	InsertFailures atomic.Uint64 `json:"insert_failures"`
	ExportFailures atomic.Uint64 `json:"export_failures"`
	DroppedReplies atomic.Uint64 `json:"dropped_replies"`
}

type WorkerState struct {
	Messages       atomic.Uint64 `json:"messages"`
	SyncPasses     atomic.Uint64 `json:"sync_passes"`
	RowsInserted   atomic.Uint64 `json:"rows_inserted"`
	LastExportSize atomic.Int64  `json:"last_export_size"`

	AverageSyncDurationMs atomic.Float64 `json:"average_sync_duration_ms"`
}

type WorkerReport struct {
	State  WorkerState  `json:"state"`
	Errors WorkerErrors `json:"errors"`
}
