// Package hub pushes workspace snapshots to connected dashboard clients over
// websockets. Delivery is best effort: a slow client may skip intermediate
// snapshots, but the next push always carries the full current tree, so
// nothing is lost by missing one.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"taskdeck.app/agent/internal/state"
)

type stateMessage struct {
	Type    string     `json:"type"`
	Version int64      `json:"version"`
	Tree    state.Tree `json:"tree"`
}

// Hub fans out state snapshots to websocket subscribers.
type Hub struct {
	originPatterns []string

	mu      sync.Mutex
	clients map[chan []byte]struct{}
	latest  []byte
}

func New(originPatterns []string) *Hub {
	return &Hub{
		originPatterns: originPatterns,
		clients:        map[chan []byte]struct{}{},
	}
}

// BroadcastState encodes the snapshot's tree and queues it to every
// connected client. Clients whose buffer is full skip this update.
func (h *Hub) BroadcastState(snap *state.Snapshot) {
	msg, err := json.Marshal(stateMessage{
		Type:    "state",
		Version: snap.Version,
		Tree:    snap.Tree(),
	})
	if err != nil {
		slog.Error("failed to encode state broadcast", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = msg
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
		}
	}
}

// ClientCount reports connected subscribers, for the health endpoint.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Serve upgrades the request and streams snapshots until the client goes
// away. The newest snapshot (if any) is delivered immediately on connect.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ch := h.register()
	defer h.unregister(ch)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Reads are only for liveness; clients send nothing we act on.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	slog.InfoContext(ctx, "dashboard client connected", "clients", h.ClientCount())
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-ch:
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}
}

func (h *Hub) register() chan []byte {
	ch := make(chan []byte, 8)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ch] = struct{}{}
	if h.latest != nil {
		ch <- h.latest
	}
	return ch
}

func (h *Hub) unregister(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
}
