package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"github.com/teivah/onecontext"
	"github.com/warp-contracts/ambassador-syncer/src/cache"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring"
	"github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/report"
	"github.com/warp-contracts/ambassador-syncer/src/utils/task"
)

// Fetches records into its own store and replies with the exported store.
// Every message is handled independently, nothing orders or serializes them.
type Worker struct {
	*task.Task

	fetcher Fetcher
	store   *cache.Store
	monitor monitoring.Monitor
	report  *report.WorkerReport

	input    chan *message
	handlers sync.WaitGroup

	// Held for reading while enqueueing, taken for writing before the final drop
	sendMtx sync.RWMutex
}

func NewWorker(config *config.Config) (self *Worker) {
	self = new(Worker)
	self.store = cache.NewStore(&config.Cache)
	self.report = &report.WorkerReport{}
	self.input = make(chan *message, config.Worker.InputChannelSize)

	self.Task = task.NewTask(config, "worker").
		// Store is created empty on start
		WithOnBeforeStart(self.store.Init).
		WithSubtaskFunc(self.run).
		// Handlers submit fetches to the pool, so they have to finish before the pool stops
		WithOnAfterStop(self.handlers.Wait).
		WithOnAfterStop(self.dropStranded).
		WithWorkerPool(config.Worker.MaxParallelFetches).
		WithOnAfterStop(func() {
			err := self.store.Close()
			if err != nil {
				self.Log.WithError(err).Warn("Failed to close store")
			}
		})

	return
}

func (self *Worker) WithFetcher(fetcher Fetcher) *Worker {
	self.fetcher = fetcher
	return self
}

func (self *Worker) WithMonitor(monitor monitoring.Monitor) *Worker {
	self.monitor = monitor
	self.report = monitor.GetReport().Worker
	return self
}

// Enqueues a request. The returned channel receives at most one response and is closed afterwards.
// A closed channel without a response means the request was dropped.
func (self *Worker) Send(ctx context.Context, req *Request) (out <-chan *Response, err error) {
	err = self.validate(req)
	if err != nil {
		return
	}

	if req.Id.IsNil() {
		req.Id = xid.New()
	}
	req.Ctx = ctx
	if req.ApiBaseUrl == "" {
		req.ApiBaseUrl = self.Config.Worker.ApiBaseUrl
	}

	self.sendMtx.RLock()
	defer self.sendMtx.RUnlock()

	if self.IsStopping.Load() {
		return nil, ErrStopped
	}

	msg := &message{Request: req, reply: make(chan *Response, 1)}
	select {
	case self.input <- msg:
		return msg.reply, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-self.StopChannel:
		return nil, ErrStopped
	}
}

func (self *Worker) validate(req *Request) (err error) {
	switch req.Action {
	case ActionSeed:
		_, err = model.ParseSyncContext(string(req.Context))
	case ActionSeedAll:
		if len(req.Contexts) == 0 {
			req.Contexts = model.SyncContexts()
		}
		for _, category := range req.Contexts {
			_, err = model.ParseSyncContext(string(category))
			if err != nil {
				return
			}
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	return
}

func (self *Worker) run() error {
	for {
		select {
		case <-self.StopChannel:
			self.drop()
			return nil
		case msg := <-self.input:
			self.handlers.Add(1)
			go func() {
				defer self.handlers.Done()
				self.handle(msg)
			}()
		}
	}
}

// Waits for in-flight Send calls, after that nothing can be enqueued anymore
func (self *Worker) dropStranded() {
	self.sendMtx.Lock()
	defer self.sendMtx.Unlock()
	self.drop()
}

// Unblocks callers of messages that will never be handled
func (self *Worker) drop() {
	for {
		select {
		case msg := <-self.input:
			self.report.Errors.DroppedReplies.Inc()
			close(msg.reply)
		default:
			return
		}
	}
}

func (self *Worker) handle(msg *message) {
	self.report.State.Messages.Inc()
	start := time.Now()

	log := self.Log.WithField("id", msg.Id.String()).WithField("action", msg.Action)
	log.Debug("Handling message")

	// Fetches outlive the caller but not the worker
	ctx, cancel := onecontext.Merge(self.Ctx, context.WithoutCancel(msg.Ctx))
	defer cancel()

	switch msg.Action {
	case ActionSeed:
		self.seed(ctx, msg)
	case ActionSeedAll:
		self.seedAll(ctx, msg)
	}

	db, err := self.store.Export()
	if err != nil {
		self.report.Errors.ExportFailures.Inc()
		log.WithError(err).Error("Failed to export store")
	}
	self.report.State.LastExportSize.Store(int64(len(db)))
	self.report.State.SyncPasses.Inc()
	if self.monitor != nil {
		self.monitor.RecordSyncDuration(time.Since(start))
	}

	self.reply(msg, &Response{
		RequestId:       msg.Id,
		Db:              db,
		IsSyncOperation: msg.IsSyncOperation,
	})

	log.WithField("size", len(db)).WithField("duration", time.Since(start)).Debug("Message handled")
}

func (self *Worker) reply(msg *message, resp *Response) {
	defer close(msg.reply)

	if msg.Ctx.Err() != nil {
		// Caller is gone, don't hand it stale results
		self.report.Errors.DroppedReplies.Inc()
		return
	}

	// Buffered, never blocks
	msg.reply <- resp
}

func (self *Worker) seed(ctx context.Context, msg *message) {
	records, err := self.fetch(ctx, msg.ApiBaseUrl, msg.Context)
	if err != nil {
		return
	}
	self.insert(msg.Context, records)
}

type fetchResult struct {
	category model.Category
	records  []*collector.RawRecord
	err      error
}

// Fetches run concurrently, each result is inserted as soon as it arrives
func (self *Worker) seedAll(ctx context.Context, msg *message) {
	results := make(chan fetchResult, len(msg.Contexts))

	for _, category := range msg.Contexts {
		category := category
		self.Workers.Submit(func() {
			records, err := self.fetch(ctx, msg.ApiBaseUrl, category)
			results <- fetchResult{category: category, records: records, err: err}
		})
	}

	for range msg.Contexts {
		result := <-results
		if result.err != nil {
			// Failed contexts don't abort the batch
			continue
		}
		self.insert(result.category, result.records)
	}
}

func (self *Worker) fetch(ctx context.Context, apiBaseUrl string, category model.Category) (out []*collector.RawRecord, err error) {
	out, err = self.fetcher.Fetch(ctx, apiBaseUrl, category)
	if err != nil {
		self.report.Errors.FetchFailures.Inc()
		self.Log.WithError(err).WithField("context", category).Warn("Failed to fetch records, skipping context")
		return
	}
	return
}

func (self *Worker) insert(category model.Category, records []*collector.RawRecord) {
	rows := make([]*model.CachedRecord, 0, len(records))
	for _, record := range records {
		row, err := record.ToCachedRecord(category)
		if err != nil {
			self.Log.WithError(err).WithField("tx_hash", record.TxHash).Warn("Failed to convert record")
			continue
		}
		rows = append(rows, row)
	}

	err := self.store.InsertRecords(rows)
	if err != nil {
		self.report.Errors.InsertFailures.Inc()
		self.Log.WithError(err).WithField("context", category).Error("Failed to insert records")
		return
	}
	self.report.State.RowsInserted.Add(uint64(len(rows)))
}
