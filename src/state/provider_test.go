package state

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/ambassador-syncer/src/cache"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/utils/blockfrost"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	monitor_syncer "github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/syncer"
	"github.com/warp-contracts/ambassador-syncer/src/worker"
)

func TestProviderTestSuite(t *testing.T) {
	suite.Run(t, new(ProviderTestSuite))
}

type stubFetcher struct {
	mtx     sync.Mutex
	records map[model.Category][]*collector.RawRecord

	// Fetches wait for it when set
	gate chan struct{}
}

func (self *stubFetcher) Fetch(ctx context.Context, apiBaseUrl string, category model.Category) ([]*collector.RawRecord, error) {
	self.mtx.Lock()
	gate := self.gate
	records := self.records[category]
	self.mtx.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return records, nil
}

func record(txHash string) *collector.RawRecord {
	return &collector.RawRecord{
		TxHash:  txHash,
		Address: "addr_script",
		Amount:  []blockfrost.Amount{{Unit: "lovelace", Quantity: "1"}},
	}
}

type ProviderTestSuite struct {
	suite.Suite
	config   *config.Config
	fetcher  *stubFetcher
	monitor  *monitor_syncer.Monitor
	provider *Provider
}

func (s *ProviderTestSuite) SetupTest() {
	s.config = config.Default()
	s.config.Cache.Dir = s.T().TempDir()
	s.config.Storage.Dir = s.T().TempDir()
	s.config.State.SyncOnStart = false
	s.config.StopTimeout = 5 * time.Second

	s.fetcher = &stubFetcher{
		records: map[model.Category][]*collector.RawRecord{
			model.CategoryMember:   {record("m1"), record("m2")},
			model.CategoryProposal: {record("p1")},
		},
	}
	s.monitor = monitor_syncer.NewMonitor()
	s.provider = s.start()
}

func (s *ProviderTestSuite) TearDownTest() {
	s.provider.StopWait()
}

func (s *ProviderTestSuite) start() *Provider {
	storage, err := NewFileStorage(&s.config.Storage)
	require.Nil(s.T(), err)

	w := worker.NewWorker(s.config).WithFetcher(s.fetcher).WithMonitor(s.monitor)
	provider := NewProvider(s.config).
		WithWorker(w).
		WithStorage(storage).
		WithMonitor(s.monitor)
	require.Nil(s.T(), provider.Start())
	return provider
}

func (s *ProviderTestSuite) awaitEvent(events <-chan Event) Event {
	select {
	case event, ok := <-events:
		require.True(s.T(), ok, "subscription closed")
		return event
	case <-time.After(10 * time.Second):
		s.T().Fatal("no event")
	}
	return Event{}
}

func (s *ProviderTestSuite) count(provider *Provider) int64 {
	rows, err := provider.Query("SELECT COUNT(*) AS n FROM utxos")
	require.Nil(s.T(), err)
	n, ok := rows[0]["n"].(int64)
	require.True(s.T(), ok)
	return n
}

func (s *ProviderTestSuite) TestQueryBeforeFirstSync() {
	require.False(s.T(), s.provider.IsLoaded())

	_, err := s.provider.Query("SELECT 1")
	require.ErrorIs(s.T(), err, cache.ErrNotLoaded)
}

func (s *ProviderTestSuite) TestSyncAllAppliesAndPersists() {
	events, unsubscribe := s.provider.Subscribe()
	defer unsubscribe()

	id, err := s.provider.SyncAll()
	require.Nil(s.T(), err)
	require.False(s.T(), id.IsNil())

	event := s.awaitEvent(events)
	require.Equal(s.T(), EventDbUpdated, event.Name)
	require.Equal(s.T(), id.String(), event.RequestId)
	require.Equal(s.T(), int64(3), event.Rows)
	require.Greater(s.T(), event.Size, 0)

	require.True(s.T(), s.provider.IsLoaded())
	require.Equal(s.T(), int64(3), s.count(s.provider))

	records, err := s.provider.Records(model.CategoryProposal)
	require.Nil(s.T(), err)
	require.Len(s.T(), records, 1)
	require.Equal(s.T(), "p1", records[0].TxHash)

	// Persisted as an array of byte values
	buf, err := s.provider.Storage().Get(context.Background(), s.config.State.StorageKey)
	require.Nil(s.T(), err)
	var image model.ByteArray
	require.Nil(s.T(), json.Unmarshal(buf, &image))
	require.Len(s.T(), image, event.Size)

	report := s.monitor.GetReport().State
	require.Eventually(s.T(), func() bool { return !s.provider.IsSyncing() }, 5*time.Second, 10*time.Millisecond)
	require.Equal(s.T(), uint64(1), report.State.SyncsStarted.Load())
	require.Equal(s.T(), uint64(1), report.State.SyncsApplied.Load())
	require.False(s.T(), report.Errors.PersistFailing.Load())
}

func (s *ProviderTestSuite) TestPersistedStoreLoadedOnStart() {
	events, unsubscribe := s.provider.Subscribe()
	_, err := s.provider.SyncOne(model.CategoryMember)
	require.Nil(s.T(), err)
	s.awaitEvent(events)
	unsubscribe()
	s.provider.StopWait()

	// Nothing fetched, data comes from the storage
	s.fetcher.mtx.Lock()
	s.fetcher.records = nil
	s.fetcher.mtx.Unlock()

	s.provider = s.start()
	require.True(s.T(), s.provider.IsLoaded())
	require.Equal(s.T(), int64(2), s.count(s.provider))
}

func (s *ProviderTestSuite) TestCorruptPersistedStore() {
	s.provider.StopWait()

	storage, err := NewFileStorage(&s.config.Storage)
	require.Nil(s.T(), err)
	require.Nil(s.T(), storage.Set(context.Background(), s.config.State.StorageKey, []byte("[1,2,3]")))

	s.provider = s.start()
	require.False(s.T(), s.provider.IsLoaded())
	require.Equal(s.T(), uint64(1), s.monitor.GetReport().State.Errors.LoadFailures.Load())

	// Next sync recovers
	events, unsubscribe := s.provider.Subscribe()
	defer unsubscribe()
	_, err = s.provider.SyncAll()
	require.Nil(s.T(), err)
	s.awaitEvent(events)
	require.True(s.T(), s.provider.IsLoaded())
}

func (s *ProviderTestSuite) TestSyncOneRejectsUnknownContext() {
	_, err := s.provider.SyncOne(model.CategoryAmbassadorProfile)
	require.ErrorIs(s.T(), err, model.ErrUnknownCategory)
	require.False(s.T(), s.provider.IsSyncing())
}

func (s *ProviderTestSuite) TestResultAfterStopIsNotApplied() {
	s.fetcher.mtx.Lock()
	s.fetcher.gate = make(chan struct{})
	s.fetcher.mtx.Unlock()

	_, err := s.provider.SyncAll()
	require.Nil(s.T(), err)
	require.True(s.T(), s.provider.IsSyncing())

	s.provider.StopWait()

	report := s.monitor.GetReport().State
	require.False(s.T(), s.provider.IsSyncing())
	require.Equal(s.T(), uint64(0), report.State.SyncsApplied.Load())

	_, err = s.provider.Storage().Get(context.Background(), s.config.State.StorageKey)
	require.ErrorIs(s.T(), err, ErrKeyNotFound)

	_, err = s.provider.SyncAll()
	require.ErrorIs(s.T(), err, ErrStopped)
}

func (s *ProviderTestSuite) TestSyncTimeout() {
	s.provider.StopWait()

	s.config.State.SyncTimeout = 100 * time.Millisecond
	s.fetcher.gate = make(chan struct{})
	s.provider = s.start()

	_, err := s.provider.SyncAll()
	require.Nil(s.T(), err)

	report := s.monitor.GetReport().State
	require.Eventually(s.T(), func() bool {
		return report.Errors.SyncTimeouts.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(s.T(), func() bool { return !s.provider.IsSyncing() }, 5*time.Second, 10*time.Millisecond)

	// Late result is dropped by the worker
	close(s.fetcher.gate)
	time.Sleep(100 * time.Millisecond)
	require.False(s.T(), s.provider.IsLoaded())
}

func (s *ProviderTestSuite) TestSyncOnStart() {
	s.provider.StopWait()

	s.config.State.SyncOnStart = true
	s.provider = s.start()

	require.Eventually(s.T(), s.provider.IsLoaded, 10*time.Second, 10*time.Millisecond)
	require.Equal(s.T(), int64(3), s.count(s.provider))
}

func (s *ProviderTestSuite) TestResyncCron() {
	s.provider.StopWait()

	// Seconds field, fires every second
	s.config.State.ResyncCron = "* * * * * *"
	s.provider = s.start()

	events, unsubscribe := s.provider.Subscribe()
	defer unsubscribe()

	first := s.awaitEvent(events)
	second := s.awaitEvent(events)
	require.Equal(s.T(), EventDbUpdated, first.Name)
	require.Equal(s.T(), EventDbUpdated, second.Name)
	require.NotEqual(s.T(), first.RequestId, second.RequestId)

	// Same worker store, every pass appends
	require.Greater(s.T(), second.Rows, first.Rows)
	require.GreaterOrEqual(s.T(), s.monitor.GetReport().State.State.SyncsApplied.Load(), uint64(2))
}

func (s *ProviderTestSuite) TestInvalidResyncCron() {
	s.config.State.ResyncCron = "every minute"

	storage, err := NewFileStorage(&s.config.Storage)
	require.Nil(s.T(), err)
	provider := NewProvider(s.config).
		WithWorker(worker.NewWorker(s.config).WithFetcher(s.fetcher)).
		WithStorage(storage)
	require.NotNil(s.T(), provider.Start())
}

func (s *ProviderTestSuite) TestSubscriptions() {
	first, unsubscribeFirst := s.provider.Subscribe()
	second, _ := s.provider.Subscribe()
	require.Equal(s.T(), int64(2), s.monitor.GetReport().State.State.Subscribers.Load())

	unsubscribeFirst()
	unsubscribeFirst()
	_, ok := <-first
	require.False(s.T(), ok)
	require.Equal(s.T(), int64(1), s.monitor.GetReport().State.State.Subscribers.Load())

	s.provider.StopWait()
	_, ok = <-second
	require.False(s.T(), ok)

	// Subscribing after stop yields a closed channel
	late, _ := s.provider.Subscribe()
	_, ok = <-late
	require.False(s.T(), ok)
}

func (s *ProviderTestSuite) TestSlowSubscriberDoesNotBlock() {
	s.config.State.SubscriberChannelSize = 1
	events, unsubscribe := s.provider.Subscribe()
	defer unsubscribe()

	for i := 0; i < 3; i++ {
		_, err := s.provider.SyncOne(model.CategoryProposal)
		require.Nil(s.T(), err)
	}

	report := s.monitor.GetReport().State
	require.Eventually(s.T(), func() bool {
		return report.State.SyncsApplied.Load() == 3
	}, 10*time.Second, 10*time.Millisecond)

	s.awaitEvent(events)
	select {
	case <-events:
		s.T().Fatal("events beyond the buffer are dropped")
	default:
	}
}
