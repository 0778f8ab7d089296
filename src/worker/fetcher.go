package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/utils/build_info"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
)

var ErrCollector = errors.New("collector endpoint failed")

// Source of the records of one sync context
type Fetcher interface {
	Fetch(ctx context.Context, apiBaseUrl string, category model.Category) ([]*collector.RawRecord, error)
}

// Calls the collector endpoint over HTTP
type HttpFetcher struct {
	client *resty.Client
	log    *logrus.Entry
}

func NewHttpFetcher(config *config.Worker) (self *HttpFetcher) {
	self = new(HttpFetcher)
	self.log = logger.NewSublogger("http-fetcher")
	self.client = resty.New().
		SetTimeout(config.RequestTimeout).
		SetHeader("User-Agent", "ambassador-syncer/"+build_info.Version).
		SetRetryCount(0).
		OnAfterResponse(self.onStatusToError)
	return
}

func (self *HttpFetcher) onStatusToError(c *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	// Endpoint describes errors as {"error": "..."}
	body, ok := resp.Error().(*collector.ErrorResponse)
	if ok && body.Error != "" {
		return fmt.Errorf("%w: %s: %s", ErrCollector, resp.Status(), body.Error)
	}
	return fmt.Errorf("%w: %s", ErrCollector, resp.Status())
}

func (self *HttpFetcher) Fetch(ctx context.Context, apiBaseUrl string, category model.Category) (out []*collector.RawRecord, err error) {
	out = make([]*collector.RawRecord, 0)
	_, err = self.client.R().
		SetContext(ctx).
		SetBody(collector.CollectRequest{Context: string(category)}).
		SetResult(&out).
		SetError(&collector.ErrorResponse{}).
		ForceContentType("application/json").
		Post(strings.TrimSuffix(apiBaseUrl, "/") + "/api/utxos")
	if err != nil {
		return nil, err
	}

	self.log.WithField("context", category).WithField("num", len(out)).Trace("Fetched records")
	return
}

// Calls a collector in the same process
type LocalFetcher struct {
	collector *collector.Collector
}

func NewLocalFetcher(collector *collector.Collector) *LocalFetcher {
	return &LocalFetcher{collector: collector}
}

func (self *LocalFetcher) Fetch(ctx context.Context, apiBaseUrl string, category model.Category) ([]*collector.RawRecord, error) {
	return self.collector.Collect(ctx, string(category), "")
}
