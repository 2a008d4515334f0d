package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taskdeck.app/agent/common/id"
	"taskdeck.app/agent/common/logger"
	"taskdeck.app/agent/internal/clickup"
	"taskdeck.app/agent/internal/http/dto"
	"taskdeck.app/agent/internal/tools"
)

// ChatService runs one conversational turn.
type ChatService interface {
	Turn(ctx context.Context, sessionID, utterance string) (string, error)
}

type ChatHandler struct {
	chat ChatService
}

func NewChatHandler(chat ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

func (h *ChatHandler) Chat(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid chat request body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = strconv.FormatInt(id.New(), 10)
	}
	ctx = logger.WithLogFields(ctx, logger.LogFields{SessionID: logger.Ptr(sessionID)})

	slog.InfoContext(ctx, "chat turn received", "message", logger.Truncate(req.Message, 200))

	reply, err := h.chat.Turn(ctx, sessionID, req.Message)
	if err != nil {
		status, msg := mapTurnError(err)
		slog.WarnContext(ctx, "chat turn failed", "error", err, "status", status)
		c.JSON(status, gin.H{"error": msg, "session_id": sessionID})
		return
	}

	c.JSON(http.StatusOK, dto.ChatResponse{SessionID: sessionID, Reply: reply})
}

// mapTurnError translates the error taxonomy into HTTP statuses: bad tool
// arguments are the caller's fault, upstream rejections are a bad gateway,
// unreachable upstream is service unavailable, everything else is internal.
func mapTurnError(err error) (int, string) {
	var invalidErr *tools.InvalidArgumentError
	if errors.As(err, &invalidErr) {
		return http.StatusBadRequest, invalidErr.Error()
	}

	var remoteErr *clickup.RemoteServiceError
	if errors.As(err, &remoteErr) {
		return http.StatusBadGateway, "the task service rejected the request"
	}

	var transportErr *clickup.TransportError
	if errors.As(err, &transportErr) {
		return http.StatusServiceUnavailable, "the task service could not be reached"
	}

	return http.StatusInternalServerError, "something went wrong handling this turn"
}
