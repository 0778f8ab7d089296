package cmd

import (
	"github.com/spf13/cobra"
	"github.com/warp-contracts/ambassador-syncer/src/server"
	"github.com/warp-contracts/ambassador-syncer/src/utils/logger"
)

func init() {
	RootCmd.AddCommand(serverCmd)
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the collector endpoint and the cached records, sync them in the background",
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		controller, err := server.NewController(conf)
		if err != nil {
			return
		}

		err = controller.Start()
		if err != nil {
			return
		}

		select {
		case <-controller.CtxRunning.Done():
		case <-applicationCtx.Done():
		}

		controller.StopWait()

		return
	},
	PostRunE: func(cmd *cobra.Command, args []string) (err error) {
		log := logger.NewSublogger("root-cmd")
		log.Debug("Finished server command")
		applicationCtxCancel()
		return
	},
}
