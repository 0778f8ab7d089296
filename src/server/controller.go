package server

import (
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/state"
	"github.com/warp-contracts/ambassador-syncer/src/utils/blockfrost"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring"
	monitor_syncer "github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/syncer"
	"github.com/warp-contracts/ambassador-syncer/src/utils/task"
	"github.com/warp-contracts/ambassador-syncer/src/worker"
)

type Controller struct {
	*task.Task
}

// Serves the API and keeps the cached records fresh
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "controller")

	// Monitoring
	monitor := monitor_syncer.NewMonitor().
		WithMaxHistorySize(30)
	monitoringServer := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Persistence of the exported store
	storage, err := state.NewStorage(self.Ctx, config)
	if err != nil {
		return
	}

	// Data provider
	client := blockfrost.NewClient(&config.Blockfrost).
		WithMonitor(monitor)

	records := collector.NewCollector(&config.Collector, client).
		WithMonitor(monitor)

	// Fetches through the collector routes of this server
	w := worker.NewWorker(config).
		WithFetcher(worker.NewHttpFetcher(&config.Worker)).
		WithMonitor(monitor)

	provider := state.NewProvider(config).
		WithWorker(w).
		WithStorage(storage).
		WithMonitor(monitor).
		WithApiBaseUrl(config.Worker.ApiBaseUrl)

	server := NewServer(config).
		WithCollector(records).
		WithProvider(provider)

	self.Task = self.Task.
		WithSubtask(monitor.Task).
		WithSubtask(monitoringServer.Task).
		WithSubtask(server.Task).
		WithSubtask(provider.Task)

	return
}
