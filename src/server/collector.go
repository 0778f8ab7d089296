package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/ambassador-syncer/src/collector"
	. "github.com/warp-contracts/ambassador-syncer/src/utils/logger"
)

func (self *Server) onPostUtxos(c *gin.Context) {
	var in collector.CollectRequest
	err := c.ShouldBindJSON(&in)
	if err != nil {
		LOGE(c, err, http.StatusBadRequest).Warn("Failed to parse request")
		return
	}

	ctx, cancel := self.requestCtx(c)
	defer cancel()

	out, err := self.collector.Collect(ctx, in.Context, in.Address)
	if err != nil {
		LOGE(c, err, statusOf(err)).WithField("context", in.Context).Warn("Failed to collect records")
		return
	}

	LOG(c).WithField("context", in.Context).WithField("num", len(out)).Debug("Collected records")
	c.JSON(http.StatusOK, out)
}

// Single output, decoded with the layout of the context given in the query
func (self *Server) onGetUtxo(c *gin.Context) {
	outputIndex, err := strconv.Atoi(c.Param("outputIndex"))
	if err != nil || outputIndex < 0 {
		LOGE(c, err, http.StatusBadRequest).Warn("Invalid output index")
		return
	}

	ctx, cancel := self.requestCtx(c)
	defer cancel()

	out, err := self.collector.Get(ctx, c.Param("txHash"), outputIndex, c.Query("context"))
	if err != nil {
		LOGE(c, err, statusOf(err)).Debug("Failed to get output")
		return
	}

	c.JSON(http.StatusOK, out)
}

func (self *Server) onGetTransactions(c *gin.Context) {
	ctx, cancel := self.requestCtx(c)
	defer cancel()

	out, err := self.collector.Transactions(ctx, c.Param("address"))
	if err != nil {
		LOGE(c, err, statusOf(err)).Warn("Failed to get transactions")
		return
	}

	c.JSON(http.StatusOK, out)
}
