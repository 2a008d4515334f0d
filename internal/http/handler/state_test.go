package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"taskdeck.app/agent/internal/http/handler"
	"taskdeck.app/agent/internal/state"
)

var _ = Describe("StateHandler", func() {
	var (
		router *gin.Engine
		store  *state.Store
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		store = state.NewStore()
		h := handler.NewStateHandler(store)
		router.GET("/state", h.State)
	})

	It("returns an empty unfetched tree initially", func() {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/state", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Version int64      `json:"version"`
			Tree    state.Tree `json:"tree"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Version).To(BeZero())
		Expect(resp.Tree.Fetched).To(BeFalse())
		Expect(resp.Tree.Spaces).To(BeEmpty())
	})

	It("returns the merged tree after events", func() {
		Expect(store.Apply(context.Background(), state.Event{
			Kind:    state.KindSpaces,
			Payload: `{"spaces": [{"id": "S1", "name": "Engineering"}]}`,
		})).To(Succeed())

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/state", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp struct {
			Version int64      `json:"version"`
			Tree    state.Tree `json:"tree"`
		}
		Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Version).To(Equal(int64(1)))
		Expect(resp.Tree.Fetched).To(BeTrue())
		Expect(resp.Tree.Spaces).To(HaveLen(1))
		Expect(resp.Tree.Spaces[0].Name).To(Equal("Engineering"))
	})
})
