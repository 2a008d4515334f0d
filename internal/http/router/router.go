package router

import (
	"github.com/gin-gonic/gin"

	"taskdeck.app/agent/internal/http/handler"
	"taskdeck.app/agent/internal/hub"
	"taskdeck.app/agent/internal/state"
)

type Config struct {
	DashboardURL string
	IsProduction bool
}

func SetupRoutes(router *gin.Engine, chat handler.ChatService, store *state.Store, h *hub.Hub, cfg Config) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "clients": h.ClientCount()})
	})

	streamHandler := handler.NewStreamHandler(h)
	router.GET("/ws", streamHandler.Stream)

	v1 := router.Group("/api/v1")
	{
		chatHandler := handler.NewChatHandler(chat)
		v1.POST("/chat", chatHandler.Chat)

		stateHandler := handler.NewStateHandler(store)
		v1.GET("/state", stateHandler.State)
	}
}
