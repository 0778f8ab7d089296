package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"github.com/warp-contracts/ambassador-syncer/src/utils/model"
)

func (self *Server) onGetRecords(c *gin.Context) {
	category, err := model.ParseCategory(c.Param("category"))
	if err != nil {
		LOGE(c, err, http.StatusBadRequest).Debug("Unknown category")
		return
	}

	out, err := self.provider.Records(category)
	if err != nil {
		LOGE(c, err, statusOf(err)).Warn("Failed to get records")
		return
	}

	c.JSON(http.StatusOK, out)
}

func (self *Server) onGetProfiles(c *gin.Context) {
	out, err := self.provider.Profiles()
	if err != nil {
		LOGE(c, err, statusOf(err)).Warn("Failed to get profiles")
		return
	}

	c.JSON(http.StatusOK, out)
}

func (self *Server) onGetSync(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"isSyncing": self.provider.IsSyncing()})
}

func (self *Server) onPostSync(c *gin.Context) {
	id, err := self.provider.SyncAll()
	if err != nil {
		LOGE(c, err, statusOf(err)).Warn("Failed to start sync")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": id.String()})
}

func (self *Server) onPostSyncContext(c *gin.Context) {
	category, err := model.ParseSyncContext(c.Param("context"))
	if err != nil {
		LOGE(c, err, http.StatusBadRequest).Debug("Unknown sync context")
		return
	}

	id, err := self.provider.SyncOne(category)
	if err != nil {
		LOGE(c, err, statusOf(err)).Warn("Failed to start sync")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"id": id.String()})
}
