package state

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron"
	"github.com/rs/xid"
	"github.com/warp-contracts/ambassador-syncer/src/cache"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/report"
	"github.com/warp-contracts/ambassador-syncer/src/utils/task"
	"github.com/warp-contracts/ambassador-syncer/src/worker"
	"go.uber.org/atomic"
)

var ErrStopped = errors.New("state provider is stopped")

const EventDbUpdated = "db_updated"

// Sent to subscribers after a sync result replaced the store
type Event struct {
	Name      string `json:"name"`
	RequestId string `json:"requestId"`
	Rows      int64  `json:"rows"`
	Size      int    `json:"size"`
	Timestamp int64  `json:"timestamp"`
}

// Keeps the latest exported store loaded, persisted and fresh.
// Syncs are not queued: every call sends its own message to the worker and the last applied result wins.
type Provider struct {
	*task.Task

	worker     *worker.Worker
	storage    Storage
	store      *cache.Store
	report     *report.StateReport
	apiBaseUrl string
	cron       *cron.Cron

	// Outstanding syncs
	syncing atomic.Int64
	syncMtx sync.Mutex
	syncs   sync.WaitGroup

	// Results are applied one at a time
	applyMtx sync.Mutex

	subscribersMtx sync.Mutex
	subscribers    map[int]chan Event
	nextSubscriber int
}

func NewProvider(config *config.Config) (self *Provider) {
	self = new(Provider)
	self.store = cache.NewStore(&config.Cache)
	self.report = &report.StateReport{}
	self.subscribers = make(map[int]chan Event)

	self.Task = task.NewTask(config, "state-provider").
		WithOnBeforeStart(self.load).
		WithOnBeforeStart(self.setupCron).
		WithSubtaskFunc(self.onStart).
		WithOnStop(self.stopCron).
		WithOnAfterStop(self.syncs.Wait).
		WithOnAfterStop(self.close)

	return
}

// Worker is started and stopped along with the provider
func (self *Provider) WithWorker(worker *worker.Worker) *Provider {
	self.worker = worker
	self.Task.WithSubtask(worker.Task)
	return self
}

// Storage is closed when the provider stops
func (self *Provider) WithStorage(storage Storage) *Provider {
	self.storage = storage
	return self
}

func (self *Provider) WithMonitor(monitor monitoring.Monitor) *Provider {
	self.report = monitor.GetReport().State
	return self
}

func (self *Provider) WithApiBaseUrl(apiBaseUrl string) *Provider {
	self.apiBaseUrl = apiBaseUrl
	return self
}

func (self *Provider) Storage() Storage {
	return self.storage
}

// Loads the persisted store before anything is served
func (self *Provider) load() (err error) {
	if self.storage == nil {
		return errors.New("storage not set")
	}

	ctx, cancel := context.WithTimeout(self.Ctx, self.Config.Storage.ConnectTimeout)
	defer cancel()

	buf, err := self.storage.Get(ctx, self.Config.State.StorageKey)
	if errors.Is(err, ErrKeyNotFound) {
		self.Log.Info("No persisted store, waiting for the first sync")
		return nil
	}
	if err != nil {
		self.report.Errors.LoadFailures.Inc()
		self.Log.WithError(err).Warn("Failed to read persisted store")
		return nil
	}

	var image model.ByteArray
	err = json.Unmarshal(buf, &image)
	if err == nil {
		err = self.store.Load(image)
	}
	if err != nil {
		self.report.Errors.LoadFailures.Inc()
		self.Log.WithError(err).Warn("Failed to load persisted store, waiting for the next sync")
		return nil
	}

	self.Log.WithField("size", len(image)).Info("Loaded persisted store")
	return nil
}

// Keeps the provider running until Stop()
func (self *Provider) onStart() error {
	if self.Config.State.SyncOnStart {
		_, err := self.SyncAll()
		if err != nil {
			self.Log.WithError(err).Warn("Failed to start initial sync")
		}
	}

	<-self.StopChannel
	return nil
}

func (self *Provider) setupCron() (err error) {
	if self.Config.State.ResyncCron == "" {
		return
	}

	self.cron = cron.New()
	err = self.cron.AddFunc(self.Config.State.ResyncCron, func() {
		_, err := self.SyncAll()
		if err != nil {
			self.Log.WithError(err).Warn("Failed to start scheduled sync")
		}
	})
	if err != nil {
		return
	}

	self.cron.Start()
	return
}

func (self *Provider) stopCron() {
	if self.cron != nil {
		self.cron.Stop()
	}
}

func (self *Provider) close() {
	self.subscribersMtx.Lock()
	for id, ch := range self.subscribers {
		close(ch)
		delete(self.subscribers, id)
		self.report.State.Subscribers.Dec()
	}
	self.subscribersMtx.Unlock()

	err := self.store.Close()
	if err != nil {
		self.Log.WithError(err).Warn("Failed to close store")
	}

	if self.storage != nil {
		err = self.storage.Close()
		if err != nil {
			self.Log.WithError(err).Warn("Failed to close storage")
		}
	}
}

// Refreshes every sync context
func (self *Provider) SyncAll() (xid.ID, error) {
	return self.sync(&worker.Request{Action: worker.ActionSeedAll, Contexts: model.SyncContexts()})
}

// Refreshes a single context
func (self *Provider) SyncOne(category model.Category) (xid.ID, error) {
	return self.sync(&worker.Request{Action: worker.ActionSeed, Context: category})
}

func (self *Provider) IsSyncing() bool {
	return self.syncing.Load() > 0
}

func (self *Provider) sync(req *worker.Request) (id xid.ID, err error) {
	if self.worker == nil {
		return id, errors.New("worker not set")
	}

	self.syncMtx.Lock()
	defer self.syncMtx.Unlock()

	if self.IsStopping.Load() {
		return id, ErrStopped
	}

	req.ApiBaseUrl = self.apiBaseUrl
	req.IsSyncOperation = true

	// Replies arriving after Stop() or the timeout are never applied
	ctx, cancel := context.WithTimeout(self.Ctx, self.Config.State.SyncTimeout)

	out, err := self.worker.Send(ctx, req)
	if err != nil {
		cancel()
		return
	}

	self.report.State.SyncsStarted.Inc()
	self.report.State.PendingSyncs.Inc()
	self.syncing.Inc()
	self.syncs.Add(1)

	go func() {
		defer func() {
			cancel()
			self.syncing.Dec()
			self.report.State.PendingSyncs.Dec()
			self.syncs.Done()
		}()

		select {
		case resp, ok := <-out:
			if !ok {
				self.Log.WithField("id", req.Id.String()).Debug("Sync dropped by the worker")
				return
			}
			if ctx.Err() != nil || self.IsStopping.Load() {
				self.report.State.StaleResults.Inc()
				return
			}
			self.apply(ctx, resp)
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				self.report.Errors.SyncTimeouts.Inc()
				self.Log.WithField("id", req.Id.String()).Warn("Sync timed out")
			}
		}
	}()

	return req.Id, nil
}

// Replaces the in-memory store, persists it and notifies subscribers
func (self *Provider) apply(ctx context.Context, resp *worker.Response) {
	self.applyMtx.Lock()
	defer self.applyMtx.Unlock()

	log := self.Log.WithField("id", resp.RequestId.String())

	err := self.store.Load(resp.Db)
	if err != nil {
		self.report.Errors.LoadFailures.Inc()
		log.WithError(err).Error("Failed to load sync result")
		return
	}

	buf, err := json.Marshal(resp.Db)
	if err == nil {
		err = self.storage.Set(ctx, self.Config.State.StorageKey, buf)
	}
	if err != nil {
		self.report.Errors.PersistFailures.Inc()
		self.report.Errors.PersistFailing.Store(true)
		log.WithError(err).Error("Failed to persist store")
	} else {
		self.report.Errors.PersistFailing.Store(false)
	}

	rows, err := self.store.Count()
	if err != nil {
		log.WithError(err).Warn("Failed to count rows")
	}

	self.report.State.SyncsApplied.Inc()
	self.report.State.LastSyncTimestamp.Store(time.Now().Unix())

	self.notify(Event{
		Name:      EventDbUpdated,
		RequestId: resp.RequestId.String(),
		Rows:      rows,
		Size:      len(resp.Db),
		Timestamp: time.Now().UnixMilli(),
	})

	log.WithField("rows", rows).WithField("size", len(resp.Db)).Info("Store updated")
}

// Events are delivered until the returned function is called or the provider stops.
// Slow subscribers miss events instead of blocking others.
func (self *Provider) Subscribe() (<-chan Event, func()) {
	self.subscribersMtx.Lock()
	defer self.subscribersMtx.Unlock()

	ch := make(chan Event, self.Config.State.SubscriberChannelSize)
	if self.IsStopping.Load() {
		close(ch)
		return ch, func() {}
	}

	id := self.nextSubscriber
	self.nextSubscriber++
	self.subscribers[id] = ch
	self.report.State.Subscribers.Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			self.subscribersMtx.Lock()
			defer self.subscribersMtx.Unlock()

			if _, ok := self.subscribers[id]; ok {
				delete(self.subscribers, id)
				close(ch)
				self.report.State.Subscribers.Dec()
			}
		})
	}
}

func (self *Provider) notify(event Event) {
	self.subscribersMtx.Lock()
	defer self.subscribersMtx.Unlock()

	for _, ch := range self.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Runs a query against the current store. cache.ErrNotLoaded until a store is available.
func (self *Provider) Query(sql string, params ...any) ([]map[string]any, error) {
	return self.store.Query(sql, params...)
}

func (self *Provider) Records(category model.Category) ([]*model.CachedRecord, error) {
	return self.store.Records(category)
}

func (self *Provider) Profiles() ([]*model.AmbassadorProfile, error) {
	return self.store.Profiles()
}

func (self *Provider) IsLoaded() bool {
	return self.store.IsLoaded()
}
