package server

import (
	"github.com/gin-gonic/gin"
	. "github.com/warp-contracts/ambassador-syncer/src/utils/logger"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Streams store updates as JSON messages until either side goes away
func (self *Server) onGetEvents(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		LOG(c).WithError(err).Warn("Failed to accept websocket")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	events, unsubscribe := self.provider.Subscribe()
	defer unsubscribe()

	// Client messages are ignored, ctx is done when the client disconnects
	ctx := conn.CloseRead(c.Request.Context())

	LOG(c).Debug("Events client connected")

	for {
		select {
		case <-ctx.Done():
			LOG(c).Debug("Events client disconnected")
			return
		case <-self.Ctx.Done():
			conn.Close(websocket.StatusGoingAway, "server stopping")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "server stopping")
				return
			}

			err = wsjson.Write(ctx, conn, event)
			if err != nil {
				LOG(c).WithError(err).Debug("Failed to send event")
				return
			}
		}
	}
}
