package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskdeck.app/agent/internal/clickup"
	"taskdeck.app/agent/internal/http/handler"
	"taskdeck.app/agent/internal/tools"
)

type mockChatService struct {
	turnFn func(ctx context.Context, sessionID, utterance string) (string, error)
}

func (m *mockChatService) Turn(ctx context.Context, sessionID, utterance string) (string, error) {
	return m.turnFn(ctx, sessionID, utterance)
}

var _ = Describe("ChatHandler", func() {
	var (
		router *gin.Engine
		svc    *mockChatService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockChatService{}
		h := handler.NewChatHandler(svc)
		router.POST("/chat", h.Chat)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("returns the reply and echoes the session id", func() {
		svc.turnFn = func(_ context.Context, sessionID, utterance string) (string, error) {
			Expect(sessionID).To(Equal("s-42"))
			Expect(utterance).To(Equal("list my spaces"))
			return "You have two spaces.", nil
		}

		w := post(`{"session_id": "s-42", "message": "list my spaces"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["session_id"]).To(Equal("s-42"))
		Expect(resp["reply"]).To(Equal("You have two spaces."))
	})

	It("generates a session id when none is given", func() {
		var gotSessionID string
		svc.turnFn = func(_ context.Context, sessionID, _ string) (string, error) {
			gotSessionID = sessionID
			return "hi", nil
		}

		w := post(`{"message": "hello"}`)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(gotSessionID).NotTo(BeEmpty())
		var resp map[string]any
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp["session_id"]).To(Equal(gotSessionID))
	})

	It("returns 400 on a missing message", func() {
		w := post(`{"session_id": "s-42"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 400 on invalid tool arguments", func() {
		svc.turnFn = func(_ context.Context, _, _ string) (string, error) {
			return "", &tools.InvalidArgumentError{Field: "priority", Reason: "must be between 1 (urgent) and 4 (low)"}
		}

		w := post(`{"message": "set priority to 9"}`)
		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 502 when the remote service rejects a call", func() {
		svc.turnFn = func(_ context.Context, _, _ string) (string, error) {
			return "", &clickup.RemoteServiceError{StatusCode: 401, Body: "token invalid"}
		}

		w := post(`{"message": "list spaces"}`)
		Expect(w.Code).To(Equal(http.StatusBadGateway))
		// Upstream response bodies never leak to the client.
		Expect(w.Body.String()).NotTo(ContainSubstring("token invalid"))
	})

	It("returns 503 when the remote service is unreachable", func() {
		svc.turnFn = func(_ context.Context, _, _ string) (string, error) {
			return "", &clickup.TransportError{Err: errors.New("connection refused")}
		}

		w := post(`{"message": "list spaces"}`)
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("returns 500 on planner failures", func() {
		svc.turnFn = func(_ context.Context, _, _ string) (string, error) {
			return "", errors.New("model unavailable")
		}

		w := post(`{"message": "hello"}`)
		Expect(w.Code).To(Equal(http.StatusInternalServerError))
	})
})
