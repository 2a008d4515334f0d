package handler

import (
	"github.com/gin-gonic/gin"

	"taskdeck.app/agent/internal/hub"
)

type StreamHandler struct {
	hub *hub.Hub
}

func NewStreamHandler(h *hub.Hub) *StreamHandler {
	return &StreamHandler{hub: h}
}

// Stream upgrades to a websocket and pushes state snapshots until the client
// disconnects.
func (h *StreamHandler) Stream(c *gin.Context) {
	h.hub.Serve(c.Writer, c.Request)
}
