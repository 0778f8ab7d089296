package cmd

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/warp-contracts/ambassador-syncer/src/cache"
	"github.com/warp-contracts/ambassador-syncer/src/state"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
)

func init() {
	RootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query <sql> [params...]",
	Short: "Run a query against the persisted database and print the rows as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		storage, err := state.NewStorage(applicationCtx, conf)
		if err != nil {
			return
		}
		defer storage.Close()

		buf, err := storage.Get(applicationCtx, conf.State.StorageKey)
		if err != nil {
			return
		}

		var image model.ByteArray
		err = json.Unmarshal(buf, &image)
		if err != nil {
			return
		}

		store := cache.NewStore(&conf.Cache)
		err = store.Load(image)
		if err != nil {
			return
		}
		defer store.Close()

		params := make([]any, 0, len(args)-1)
		for _, arg := range args[1:] {
			params = append(params, arg)
		}

		rows, err := store.Query(args[0], params...)
		if err != nil {
			return
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(rows)
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished query command")
		applicationCtxCancel()
		return
	},
}
