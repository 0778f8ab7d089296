package monitor_syncer

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/report"
	"github.com/warp-contracts/ambassador-syncer/src/utils/task"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report report.Report

	collector *Collector

	// Durations of the last sync passes, in milliseconds
	mtx           sync.Mutex
	historySize   int
	SyncDurations *deque.Deque[int64]
}

func NewMonitor() (self *Monitor) {
	self = new(Monitor)

	self.Report = report.NewReport()

	// Initialization
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())

	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(nil, "monitor").
		WithPeriodicSubtaskFunc(time.Minute, self.monitorSyncDurations)

	return self.WithMaxHistorySize(30)
}

func (self *Monitor) WithMaxHistorySize(maxHistorySize int) *Monitor {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.historySize = maxHistorySize
	self.SyncDurations = deque.New[int64](self.historySize)
	return self
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

func round(f float64) float64 {
	return math.Round(f*100) / 100
}

func (self *Monitor) RecordSyncDuration(d time.Duration) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	self.SyncDurations.PushBack(d.Milliseconds())
	if self.SyncDurations.Len() > self.historySize {
		self.SyncDurations.PopFront()
	}
}

// Measure sync pass duration
func (self *Monitor) monitorSyncDurations() (err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.SyncDurations.Len() == 0 {
		// Nothing synced yet
		return
	}

	var sum int64
	for i := 0; i < self.SyncDurations.Len(); i++ {
		sum += self.SyncDurations.At(i)
	}

	self.Report.Worker.State.AverageSyncDurationMs.Store(round(float64(sum) / float64(self.SyncDurations.Len())))
	return
}

// Unhealthy while the exported store can't be persisted
func (self *Monitor) IsOK() bool {
	return !self.Report.State.Errors.PersistFailing.Load()
}

func (self *Monitor) fill() {
	self.Report.Run.State.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.State.StartTimestamp.Load()))
	_ = self.monitorSyncDurations()
}

func (self *Monitor) OnGetState(c *gin.Context) {
	self.fill()
	c.JSON(http.StatusOK, &self.Report)
}

func (self *Monitor) OnGetHealth(c *gin.Context) {
	if self.IsOK() {
		c.Status(http.StatusOK)
	} else {
		c.Status(http.StatusServiceUnavailable)
	}
}
