package cmd

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	"github.com/warp-contracts/ambassador-syncer/src/state"
	"github.com/warp-contracts/ambassador-syncer/src/utils/blockfrost"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
	monitor_syncer "github.com/warp-contracts/ambassador-syncer/src/utils/monitoring/syncer"
	"github.com/warp-contracts/ambassador-syncer/src/worker"
)

var syncOutFile string

func init() {
	syncCmd.Flags().StringVar(&syncOutFile, "out", "", "also write the exported database to this file")
	RootCmd.AddCommand(syncCmd)
}

var syncCmd = &cobra.Command{
	Use:   "sync [contexts...]",
	Short: "Run a single sync pass in-process and persist the exported database",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("sync-cmd")

		contexts := make([]model.Category, 0, len(args))
		for _, arg := range args {
			var category model.Category
			category, err = model.ParseSyncContext(arg)
			if err != nil {
				return
			}
			contexts = append(contexts, category)
		}

		monitor := monitor_syncer.NewMonitor()
		client := blockfrost.NewClient(&conf.Blockfrost).
			WithMonitor(monitor)
		records := collector.NewCollector(&conf.Collector, client).
			WithMonitor(monitor)

		w := worker.NewWorker(conf).
			WithFetcher(worker.NewLocalFetcher(records)).
			WithMonitor(monitor)

		err = w.Start()
		if err != nil {
			return
		}
		defer w.StopWait()

		out, err := w.Send(applicationCtx, &worker.Request{
			Action:          worker.ActionSeedAll,
			Contexts:        contexts,
			IsSyncOperation: true,
		})
		if err != nil {
			return
		}

		var (
			resp *worker.Response
			ok   bool
		)
		select {
		case resp, ok = <-out:
		case <-applicationCtx.Done():
		}
		if !ok {
			return errors.New("sync interrupted")
		}

		storage, err := state.NewStorage(applicationCtx, conf)
		if err != nil {
			return
		}
		defer storage.Close()

		buf, err := json.Marshal(resp.Db)
		if err != nil {
			return
		}

		err = storage.Set(applicationCtx, conf.State.StorageKey, buf)
		if err != nil {
			return
		}

		if syncOutFile != "" {
			err = os.WriteFile(syncOutFile, resp.Db, 0o600)
			if err != nil {
				return
			}
		}

		report := monitor.GetReport()
		log.WithField("rows", report.Worker.State.RowsInserted.Load()).
			WithField("fetch_failures", report.Worker.Errors.FetchFailures.Load()).
			WithField("size", len(resp.Db)).
			Info("Sync finished")

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished sync command")
		applicationCtxCancel()
		return
	},
}
