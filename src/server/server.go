package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/state"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/task"
)

// Application API: collector endpoint, cached records and change notifications
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine
	api        *gin.RouterGroup

	collector *collector.Collector
	provider  *state.Provider
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "api-server").
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	if !config.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}

	self.Router = gin.New()
	self.Router.Use(gin.Recovery(), logger.Middleware())
	self.api = self.Router.Group("api")

	self.httpServer = &http.Server{
		Addr:    config.Server.ListenAddress,
		Handler: self.Router,
	}

	return
}

// Serves the collector routes
func (self *Server) WithCollector(collector *collector.Collector) *Server {
	self.collector = collector

	self.api.POST("utxos", self.onPostUtxos)
	self.api.GET("utxos/:txHash/:outputIndex", self.onGetUtxo)
	self.api.GET("transactions/:address", self.onGetTransactions)

	return self
}

// Serves the cached data, sync control, events and blobs
func (self *Server) WithProvider(provider *state.Provider) *Server {
	self.provider = provider

	self.api.GET("records/:category", self.onGetRecords)
	self.api.GET("profiles", self.onGetProfiles)

	self.api.GET("sync", self.onGetSync)
	self.api.POST("sync", self.onPostSync)
	self.api.POST("sync/:context", self.onPostSyncContext)

	self.api.GET("events", self.onGetEvents)

	self.api.PUT("blobs/:key", self.onPutBlob)
	self.api.GET("blobs/:key", self.onGetBlob)

	return self
}

// Request context limited by the configured timeout
func (self *Server) requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), self.Config.Server.RequestTimeout)
}

func (self *Server) run() (err error) {
	self.Log.WithField("address", self.httpServer.Addr).Info("Starting API server")
	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start API server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown API server")
		return
	}
}
