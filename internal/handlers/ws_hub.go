package handlers

import (
	"encoding/json"
	"sync"

	"github.com/parlorchat/parlor/internal/chat"

	"github.com/gorilla/websocket"
)

type wsClient struct {
	conn      *websocket.Conn
	send      chan []byte
	connID    string
	closeOnce sync.Once
}

func (c *wsClient) trySend(payload []byte) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *wsClient) closeSend() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// WSHub tracks live websocket clients by connection id and is the chat
// core's Sender. Sends never block: a client with a full buffer is closed
// rather than allowed to stall the caller.
type WSHub struct {
	mu      sync.Mutex
	clients map[string]*wsClient
}

func NewWSHub() *WSHub {
	return &WSHub{
		clients: make(map[string]*wsClient),
	}
}

func (h *WSHub) Add(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Replace any stale connection carrying the same id.
	if old := h.clients[client.connID]; old != nil {
		_ = old.conn.Close()
		old.closeSend()
	}
	h.clients[client.connID] = client
}

func (h *WSHub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, ok := h.clients[connID]; ok {
		client.closeSend()
		delete(h.clients, connID)
	}
}

// Send implements chat.Sender. The envelope is marshaled outside the hub
// lock; delivery failure closes the connection and reports false.
func (h *WSHub) Send(connID, event string, data any) bool {
	payload, err := encodeEnvelope(event, data)
	if err != nil {
		return false
	}

	h.mu.Lock()
	client := h.clients[connID]
	h.mu.Unlock()

	if client == nil {
		return false
	}
	if !client.trySend(payload) {
		_ = client.conn.Close()
		return false
	}
	return true
}

func encodeEnvelope(event string, data any) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(chat.Envelope{Event: event, Data: raw})
}
