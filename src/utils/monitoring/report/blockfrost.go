package report

import "go.uber.org/atomic"

type BlockfrostErrors struct {
	FailedRequests  atomic.Uint64 `json:"failed_requests"`
	RateLimitErrors atomic.Uint64 `json:"rate_limit"`
}

type BlockfrostState struct {
	Requests      atomic.Uint64 `json:"requests"`
	UtxoCacheHits atomic.Uint64 `json:"utxo_cache_hits"`
}

type BlockfrostReport struct {
	State  BlockfrostState  `json:"state"`
	Errors BlockfrostErrors `json:"errors"`
}
