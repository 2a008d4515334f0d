package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskdeck.app/agent/internal/state"
)

type StateHandler struct {
	store *state.Store
}

func NewStateHandler(store *state.Store) *StateHandler {
	return &StateHandler{store: store}
}

// State returns the current workspace tree, for clients that poll instead of
// holding a websocket.
func (h *StateHandler) State(c *gin.Context) {
	snap := h.store.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"version": snap.Version,
		"tree":    snap.Tree(),
	})
}
