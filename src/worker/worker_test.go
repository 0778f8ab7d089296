package worker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/ambassador-syncer/src/cache"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/utils/blockfrost"
	"github.com/warp-contracts/ambassador-syncer/src/utils/config"
	"github.com/warp-contracts/ambassador-syncer/src/utils/datum"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	monitor_syncer "github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/syncer"
	"go.uber.org/goleak"
)

func TestWorkerTestSuite(t *testing.T) {
	suite.Run(t, new(WorkerTestSuite))
}

// Stands in for the collector endpoint
type endpoint struct {
	mtx      sync.Mutex
	records  map[string][]*collector.RawRecord
	failing  map[string]bool
	delay    time.Duration
	requests int
}

func (self *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost || r.URL.Path != "/api/utxos" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var req collector.CollectRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	self.mtx.Lock()
	self.requests++
	records, failing, delay := self.records[req.Context], self.failing[req.Context], self.delay
	self.mtx.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(collector.ErrorResponse{Error: "provider unavailable"})
		return
	}
	if records == nil {
		records = []*collector.RawRecord{}
	}
	_ = json.NewEncoder(w).Encode(records)
}

type WorkerTestSuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	config   *config.Config
	endpoint *endpoint
	server   *httptest.Server
	monitor  *monitor_syncer.Monitor
	worker   *Worker
}

func hexOf(d *datum.PlutusData) *string {
	out, err := d.Hex()
	if err != nil {
		panic(err)
	}
	return &out
}

func memberRecord(txHash string, outputIndex int, valid bool) *collector.RawRecord {
	fields := []*datum.PlutusData{
		datum.NewText("addr_" + txHash),
		datum.NewText("name " + txHash),
		datum.NewText(txHash),
		datum.NewText(txHash + "@example.com"),
		datum.NewText("bio"),
	}
	if valid {
		fields = append(fields, datum.NewText("3"))
	}
	return &collector.RawRecord{
		TxHash:      txHash,
		OutputIndex: outputIndex,
		Address:     "addr_member",
		Amount:      []blockfrost.Amount{{Unit: "lovelace", Quantity: "1500000"}},
		InlineDatum: hexOf(datum.NewConstr(0, datum.NewConstr(0, fields...), datum.NewInt(1))),
	}
}

func plainRecord(txHash string) *collector.RawRecord {
	return &collector.RawRecord{
		TxHash:  txHash,
		Address: "addr_script",
		Amount:  []blockfrost.Amount{{Unit: "lovelace", Quantity: "1"}},
	}
}

func (s *WorkerTestSuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.endpoint = &endpoint{
		records: map[string][]*collector.RawRecord{
			// Endpoint didn't filter the second record, its datum misses a field
			"member":            {memberRecord("m1", 0, true), memberRecord("m2", 1, false)},
			"membership_intent": {plainRecord("i1")},
			"proposal":          {plainRecord("p1")},
			"proposal_intent":   {plainRecord("pi1"), plainRecord("pi2")},
			"sign_of_approval":  {plainRecord("s1")},
		},
		failing: map[string]bool{},
	}
	s.server = httptest.NewServer(s.endpoint)

	s.config = config.Default()
	s.config.Cache.Dir = s.T().TempDir()
	s.config.Worker.ApiBaseUrl = s.server.URL
	s.config.StopTimeout = 5 * time.Second

	s.monitor = monitor_syncer.NewMonitor()
	s.worker = NewWorker(s.config).
		WithFetcher(NewHttpFetcher(&s.config.Worker)).
		WithMonitor(s.monitor)
	require.Nil(s.T(), s.worker.Start())
}

func (s *WorkerTestSuite) TearDownTest() {
	s.cancel()
	s.worker.StopWait()
	s.server.Close()
}

func (s *WorkerTestSuite) await(out <-chan *Response) *Response {
	select {
	case resp, ok := <-out:
		require.True(s.T(), ok, "request dropped")
		return resp
	case <-time.After(10 * time.Second):
		s.T().Fatal("no response")
	}
	return nil
}

func (s *WorkerTestSuite) load(resp *Response) *cache.Store {
	store := cache.NewStore(&s.config.Cache)
	require.Nil(s.T(), store.Load(resp.Db))
	s.T().Cleanup(func() { _ = store.Close() })
	return store
}

func (s *WorkerTestSuite) count(store *cache.Store) int64 {
	rows, err := store.Query("SELECT COUNT(*) AS n FROM utxos")
	require.Nil(s.T(), err)
	n, ok := rows[0]["n"].(int64)
	require.True(s.T(), ok)
	return n
}

func (s *WorkerTestSuite) TestSeedStoresWhatTheEndpointReturns() {
	out, err := s.worker.Send(s.ctx, &Request{
		Action:          ActionSeed,
		Context:         model.CategoryMember,
		IsSyncOperation: true,
	})
	require.Nil(s.T(), err)

	resp := s.await(out)
	require.True(s.T(), resp.IsSyncOperation)
	require.False(s.T(), resp.RequestId.IsNil())

	// Worker does no filtering of its own
	store := s.load(resp)
	require.Equal(s.T(), int64(2), s.count(store))

	rows, err := store.Query("SELECT category FROM utxos WHERE tx_hash = ?", "m2")
	require.Nil(s.T(), err)
	require.Equal(s.T(), "member", rows[0]["category"])

	// Only the valid member datum has a profile
	profiles, err := store.Profiles()
	require.Nil(s.T(), err)
	require.Len(s.T(), profiles, 1)
	require.Equal(s.T(), "m1", profiles[0].TxHash)

	_, ok := <-out
	require.False(s.T(), ok, "channel closed after the response")
}

func (s *WorkerTestSuite) TestSeedAllSurvivesFailingContext() {
	s.endpoint.mtx.Lock()
	s.endpoint.failing["proposal"] = true
	s.endpoint.mtx.Unlock()

	out, err := s.worker.Send(s.ctx, &Request{Action: ActionSeedAll, Contexts: model.SyncContexts()})
	require.Nil(s.T(), err)

	resp := s.await(out)
	require.NotEmpty(s.T(), resp.Db)

	store := s.load(resp)
	require.Equal(s.T(), int64(6), s.count(store))

	rows, err := store.Query("SELECT COUNT(*) AS n FROM utxos WHERE category = ?", "proposal")
	require.Nil(s.T(), err)
	require.EqualValues(s.T(), 0, rows[0]["n"])

	for _, category := range []string{"member", "membership_intent", "proposal_intent", "sign_of_approval"} {
		rows, err := store.Query("SELECT COUNT(*) AS n FROM utxos WHERE category = ?", category)
		require.Nil(s.T(), err)
		require.NotZero(s.T(), rows[0]["n"], category)
	}

	require.Equal(s.T(), uint64(1), s.monitor.Report.Worker.Errors.FetchFailures.Load())
}

func (s *WorkerTestSuite) TestSeedAllDefaultsToEveryContext() {
	out, err := s.worker.Send(s.ctx, &Request{Action: ActionSeedAll})
	require.Nil(s.T(), err)

	store := s.load(s.await(out))
	require.Equal(s.T(), int64(7), s.count(store))
}

func (s *WorkerTestSuite) TestFailedSeedStillReplies() {
	s.endpoint.mtx.Lock()
	s.endpoint.failing["member"] = true
	s.endpoint.mtx.Unlock()

	out, err := s.worker.Send(s.ctx, &Request{Action: ActionSeed, Context: model.CategoryMember})
	require.Nil(s.T(), err)

	store := s.load(s.await(out))
	require.Equal(s.T(), int64(0), s.count(store))
}

// Known limitation: re-syncing appends rows instead of replacing them
func (s *WorkerTestSuite) TestRepeatedSeedDuplicatesRows() {
	for i := 0; i < 2; i++ {
		out, err := s.worker.Send(s.ctx, &Request{Action: ActionSeed, Context: model.CategoryMember})
		require.Nil(s.T(), err)
		s.await(out)
	}

	out, err := s.worker.Send(s.ctx, &Request{Action: ActionSeed, Context: model.CategoryMembershipIntent})
	require.Nil(s.T(), err)
	store := s.load(s.await(out))

	rows, err := store.Query("SELECT tx_hash, output_index, COUNT(*) AS n FROM utxos WHERE category = ? GROUP BY tx_hash, output_index", "member")
	require.Nil(s.T(), err)
	require.Len(s.T(), rows, 2)
	for _, row := range rows {
		require.EqualValues(s.T(), 2, row["n"])
	}
}

func (s *WorkerTestSuite) TestGoneCallerGetsNoReply() {
	s.endpoint.mtx.Lock()
	s.endpoint.delay = 300 * time.Millisecond
	s.endpoint.mtx.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	out, err := s.worker.Send(ctx, &Request{Action: ActionSeed, Context: model.CategoryProposal})
	require.Nil(s.T(), err)
	cancel()

	select {
	case resp, ok := <-out:
		require.False(s.T(), ok)
		require.Nil(s.T(), resp)
	case <-time.After(10 * time.Second):
		s.T().Fatal("channel not closed")
	}

	// The fetch itself wasn't cancelled
	require.Eventually(s.T(), func() bool {
		return s.monitor.Report.Worker.State.RowsInserted.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(s.T(), uint64(1), s.monitor.Report.Worker.Errors.DroppedReplies.Load())
}

func (s *WorkerTestSuite) TestInvalidRequests() {
	_, err := s.worker.Send(s.ctx, &Request{Action: "drop"})
	require.ErrorIs(s.T(), err, ErrUnknownAction)

	_, err = s.worker.Send(s.ctx, &Request{Action: ActionSeed, Context: model.CategoryAmbassadorProfile})
	require.ErrorIs(s.T(), err, model.ErrUnknownCategory)

	_, err = s.worker.Send(s.ctx, &Request{Action: ActionSeedAll, Contexts: []model.Category{"member", "other"}})
	require.ErrorIs(s.T(), err, model.ErrUnknownCategory)
}

func (s *WorkerTestSuite) TestSendAfterStop() {
	s.worker.StopWait()

	_, err := s.worker.Send(s.ctx, &Request{Action: ActionSeed, Context: model.CategoryMember})
	require.ErrorIs(s.T(), err, ErrStopped)
}

func (s *WorkerTestSuite) TestSendRacingStopAlwaysClosesReplies() {
	var (
		mtx  sync.Mutex
		outs []<-chan *Response
		wg   sync.WaitGroup
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				out, err := s.worker.Send(s.ctx, &Request{Action: ActionSeed, Context: model.CategoryProposal})
				if err != nil {
					s.ErrorIs(err, ErrStopped)
					return
				}
				mtx.Lock()
				outs = append(outs, out)
				mtx.Unlock()
			}
		}()
	}

	// Let senders fill the input before stopping
	require.Eventually(s.T(), func() bool {
		mtx.Lock()
		defer mtx.Unlock()
		return len(outs) > s.config.Worker.InputChannelSize
	}, 5*time.Second, time.Millisecond)

	s.worker.StopWait()
	wg.Wait()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, out := range outs {
			for range out {
			}
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		s.T().Fatal("reply channel left open after stop")
	}
}

func TestWorkerLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)

	server := httptest.NewServer(&endpoint{records: map[string][]*collector.RawRecord{
		"member": {memberRecord("m1", 0, true)},
	}})
	defer server.Close()

	config := config.Default()
	config.Cache.Dir = t.TempDir()
	config.Worker.ApiBaseUrl = server.URL

	worker := NewWorker(config).WithFetcher(NewHttpFetcher(&config.Worker))
	require.Nil(t, worker.Start())

	out, err := worker.Send(context.Background(), &Request{Action: ActionSeedAll})
	require.Nil(t, err)
	resp := <-out
	require.NotNil(t, resp)

	worker.StopWait()
}
