package blockfrost

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/ambassador-syncer/src/utils/build_info"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring"
	"golang.org/x/time/rate"
)

type BaseClient struct {
	client  *resty.Client
	config  *config.Blockfrost
	log     *logrus.Entry
	monitor monitoring.Monitor

	// One host, one limiter
	limiter *rate.Limiter
}

func newBaseClient(config *config.Blockfrost) (self *BaseClient) {
	self = new(BaseClient)
	self.config = config
	self.log = logger.NewSublogger("blockfrost-client")

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.RateBurst
	if burst < 1 {
		burst = 1
	}
	self.limiter = rate.NewLimiter(limit, burst)

	self.client =
		resty.New().
			SetBaseURL(config.BaseUrl()).
			SetTimeout(config.RequestTimeout).
			SetHeader("User-Agent", "ambassador-syncer/"+build_info.Version).
			SetHeader("project_id", config.ProjectId()).
			SetRetryCount(config.RetryCount).
			SetLogger(NewLogger()).
			AddRetryCondition(self.onRetryCondition).
			OnBeforeRequest(self.onRateLimit).
			OnAfterResponse(self.onStatusToError)

	return
}

func (self *BaseClient) WithMonitor(monitor monitoring.Monitor) *BaseClient {
	self.monitor = monitor
	return self
}

// Blocks till the request is allowed or the request's context is done
func (self *BaseClient) onRateLimit(c *resty.Client, req *resty.Request) (err error) {
	err = self.limiter.Wait(req.Context())
	if err != nil {
		self.log.WithError(err).WithField("url", req.URL).Debug("Rate limiting failed")
		return
	}

	if self.monitor != nil {
		self.monitor.GetReport().Blockfrost.State.Requests.Inc()
	}
	return
}

// Converts HTTP status to errors
func (self *BaseClient) onStatusToError(c *resty.Client, resp *resty.Response) error {
	if resp.IsSuccess() {
		return nil
	}

	if resp.StatusCode() == http.StatusNotFound {
		// Provider uses 404 for addresses and hashes it has never seen
		return ErrNotFound
	}

	if self.monitor != nil {
		self.monitor.GetReport().Blockfrost.Errors.FailedRequests.Inc()
		if resp.StatusCode() == http.StatusTooManyRequests {
			self.monitor.GetReport().Blockfrost.Errors.RateLimitErrors.Inc()
		}
	}

	if resp.StatusCode() > 399 && resp.StatusCode() < 500 {
		self.log.WithField("status", resp.StatusCode()).
			WithField("resp", string(resp.Body())).
			WithField("url", resp.Request.URL).
			Debug("Bad request")
	}
	return fmt.Errorf("%w: %s", ErrBadResponse, resp.Status())
}

// Retry only upon server errors and rate limiting
func (self *BaseClient) onRetryCondition(resp *resty.Response, err error) bool {
	if err != nil || resp == nil {
		return false
	}
	return resp.StatusCode() >= 500 || resp.StatusCode() == http.StatusTooManyRequests
}
