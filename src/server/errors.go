package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/warp-contracts/ambassador-syncer/src/cache"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/state"
	"github.com/warp-contracts/ambassador-syncer/src/utils/blockfrost"
	"github.com/warp-contracts/ambassador-syncer/src/utils/datum"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
)

var ErrBlobTooLarge = errors.New("blob too large")

// Maps errors to response statuses
func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownCategory),
		errors.Is(err, collector.ErrNoAddress),
		errors.Is(err, state.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, blockfrost.ErrNotFound),
		errors.Is(err, state.ErrKeyNotFound):
		return http.StatusNotFound
	case errors.Is(err, datum.ErrShapeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrBlobTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, cache.ErrNotLoaded),
		errors.Is(err, state.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, collector.ErrProvider):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
