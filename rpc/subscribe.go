package rpc

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"katana-node/core/felt"
	"katana-node/core/types"
)

// subscribeRequest and subscribeResponse mirror the JSON-RPC envelope for
// the two subscription methods a WebSocket connection accepts in addition
// to ordinary request/response calls: subscribe_new_heads and
// subscribe_pending_transactions, plus unsubscribe.
type subscribeRequest struct {
	Version string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      any             `json:"id"`
}

type subscribeResult struct {
	Version string `json:"jsonrpc"`
	Result  any    `json:"result,omitempty"`
	Error   any    `json:"error,omitempty"`
	ID      any    `json:"id"`
}

// subscriptionNotification is the server-push envelope delivered for every
// new head or pending transaction after a client subscribes.
type subscriptionNotification struct {
	Version string               `json:"jsonrpc"`
	Method  string               `json:"method"`
	Params  subscriptionParams   `json:"params"`
}

type subscriptionParams struct {
	Subscription string `json:"subscription"`
	Result       any    `json:"result"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn serializes writes to a single WebSocket connection: gorilla
// forbids concurrent writers, but notifications and direct replies both
// originate from independent goroutines.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithField("err", err).Warn("rpc: websocket upgrade failed")
		return
	}
	conn := &wsConn{conn: raw}
	defer raw.Close()

	unsubscribers := make(map[string]func())
	defer func() {
		for _, unsub := range unsubscribers {
			unsub()
		}
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}
		s.handleWSMessage(conn, data, unsubscribers)
	}
}

func (s *Server) handleWSMessage(conn *wsConn, data []byte, unsubscribers map[string]func()) {
	var req subscribeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		_ = conn.writeJSON(subscribeResult{Version: "2.0", Error: map[string]any{"code": -32700, "message": "Parse error"}})
		return
	}

	switch req.Method {
	case "subscribe_new_heads":
		id := uuid.NewString()
		heads, unsubscribe := s.backend.Producer.SubscribeNewHeads(32)
		unsubscribers[id] = unsubscribe
		go s.forwardHeads(conn, id, heads)
		_ = conn.writeJSON(subscribeResult{Version: "2.0", Result: id, ID: req.ID})
	case "subscribe_pending_transactions":
		id := uuid.NewString()
		hashes, unsubscribe := s.backend.Pool.Subscribe(256)
		unsubscribers[id] = unsubscribe
		go s.forwardPendingTxs(conn, id, hashes)
		_ = conn.writeJSON(subscribeResult{Version: "2.0", Result: id, ID: req.ID})
	case "unsubscribe":
		var ids []string
		_ = json.Unmarshal(req.Params, &ids)
		ok := false
		if len(ids) == 1 {
			if unsub, found := unsubscribers[ids[0]]; found {
				unsub()
				delete(unsubscribers, ids[0])
				ok = true
			}
		}
		_ = conn.writeJSON(subscribeResult{Version: "2.0", Result: ok, ID: req.ID})
	default:
		resp, err := s.rpc.Handle(data)
		if err != nil {
			s.log.WithField("err", err).Warn("rpc: websocket request failed")
			return
		}
		if resp == nil {
			return
		}
		s.writeRaw(conn, resp)
	}
}

func (s *Server) writeRaw(conn *wsConn, data []byte) {
	conn.mu.Lock()
	defer conn.mu.Unlock()
	_ = conn.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Server) forwardHeads(conn *wsConn, subscriptionID string, heads <-chan types.BlockHeader) {
	for header := range heads {
		note := subscriptionNotification{
			Version: "2.0",
			Method:  "subscription_new_heads",
			Params:  subscriptionParams{Subscription: subscriptionID, Result: toHeaderDTO(header)},
		}
		if err := conn.writeJSON(note); err != nil {
			return
		}
	}
}

func (s *Server) forwardPendingTxs(conn *wsConn, subscriptionID string, hashes <-chan felt.Felt) {
	for hash := range hashes {
		note := subscriptionNotification{
			Version: "2.0",
			Method:  "subscription_pending_transactions",
			Params:  subscriptionParams{Subscription: subscriptionID, Result: hash},
		}
		if err := conn.writeJSON(note); err != nil {
			return
		}
	}
}
