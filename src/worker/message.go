package worker

import (
	"context"

	"github.com/rs/xid"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
)

type Action string

const (
	// Fetch a single context
	ActionSeed Action = "seed"

	// Fetch many contexts concurrently
	ActionSeedAll Action = "seedAll"
)

// Message sent to the worker
type Request struct {
	Id       xid.ID
	Action   Action
	Context  model.Category
	Contexts []model.Category

	// Base url of the server exposing the collector endpoint. Empty means the configured one.
	ApiBaseUrl string

	// Echoed back in the response
	IsSyncOperation bool

	// Reply is delivered only while this context is alive
	Ctx context.Context
}

// Message sent back by the worker. There's no error variant, failed fetches just leave rows out.
type Response struct {
	RequestId       xid.ID          `json:"requestId"`
	Db              model.ByteArray `json:"db"`
	IsSyncOperation bool            `json:"isSyncOperation"`
}

type message struct {
	*Request
	reply chan *Response
}
