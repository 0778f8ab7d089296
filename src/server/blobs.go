package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/warp-contracts/ambassador-syncer/src/utils/logger"
)

const blobKeyPrefix = "blob."

// Small JSON documents kept next to the persisted store
func (self *Server) onPutBlob(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, self.Config.Server.MaxBlobSize)
	buf, err := io.ReadAll(body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			err = fmt.Errorf("%w: limit is %d bytes", ErrBlobTooLarge, maxBytesErr.Limit)
			LOGE(c, err, http.StatusRequestEntityTooLarge).Debug("Blob too large")
			return
		}
		LOGE(c, err, http.StatusBadRequest).Warn("Failed to read blob")
		return
	}

	if !json.Valid(buf) {
		LOGE(c, errors.New("blob is not valid JSON"), http.StatusBadRequest).Debug("Invalid blob")
		return
	}

	ctx, cancel := self.requestCtx(c)
	defer cancel()

	err = self.provider.Storage().Set(ctx, blobKeyPrefix+c.Param("key"), buf)
	if err != nil {
		LOGE(c, err, statusOf(err)).Warn("Failed to store blob")
		return
	}

	c.Status(http.StatusNoContent)
}

func (self *Server) onGetBlob(c *gin.Context) {
	ctx, cancel := self.requestCtx(c)
	defer cancel()

	buf, err := self.provider.Storage().Get(ctx, blobKeyPrefix+c.Param("key"))
	if err != nil {
		LOGE(c, err, statusOf(err)).Debug("Failed to get blob")
		return
	}

	c.Data(http.StatusOK, "application/json", buf)
}
