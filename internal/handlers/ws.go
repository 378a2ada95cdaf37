package handlers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/parlorchat/parlor/internal/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 70 * time.Second
	wsPingPeriod = 30 * time.Second
)

// HandleWebSocket upgrades the connection, assigns it an opaque connection
// id and runs the event loop until the channel closes. The close triggers
// the full room and call cleanup before the id is released.
func (h *Handlers) HandleWebSocket(c *gin.Context) {
	conn, err := h.wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "ip", c.ClientIP(), "error", err)
		return
	}

	connID, err := gonanoid.New(16)
	if err != nil {
		_ = conn.Close()
		return
	}

	client := &wsClient{
		conn:   conn,
		send:   make(chan []byte, 32),
		connID: connID,
	}

	h.hub.Add(client)
	h.chat.Connect(connID)
	h.logger.Debug("ws connected", "conn_id", connID, "ip", c.ClientIP())

	go h.writePump(client)
	h.readPump(client)
}

func (h *Handlers) readPump(client *wsClient) {
	defer func() {
		_ = client.conn.Close()
		h.chat.Disconnect(client.connID)
		h.hub.Remove(client.connID)
		h.logger.Debug("ws disconnected", "conn_id", client.connID)
	}()

	_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	client.conn.SetPongHandler(func(string) error {
		_ = client.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})

	for {
		_, payload, err := client.conn.ReadMessage()
		if err != nil {
			h.logger.Debug("ws read error", "conn_id", client.connID, "error", err)
			return
		}

		var env chat.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			h.logger.Debug("ws bad json", "conn_id", client.connID, "error", err)
			continue
		}

		h.dispatch(client.connID, env)
	}
}

func (h *Handlers) writePump(client *wsClient) {
	defer func() {
		_ = client.conn.Close()
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-client.send:
			if !ok {
				return
			}
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = client.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound event. A malformed or rejected event only ever
// affects the sending connection: room and join failures go back as error
// events, everything else is logged and dropped.
func (h *Handlers) dispatch(connID string, env chat.Envelope) {
	// Never log signaling payloads, they may carry addresses. Sizes only.
	h.logger.Debug("ws recv", "conn_id", connID, "event", env.Event, "data_bytes", len(env.Data))

	switch env.Event {
	case chat.EventCreateRoom:
		var req chat.CreateRoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			h.hub.Send(connID, chat.EventRoomError, "Invalid request")
			return
		}
		if err := h.chat.CreateRoom(connID, req); err != nil {
			h.hub.Send(connID, chat.EventRoomError, roomErrorMessage(err))
		}

	case chat.EventJoinRoom:
		var req chat.JoinRoomRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			h.hub.Send(connID, chat.EventJoinError, "Invalid request")
			return
		}
		if err := h.chat.JoinRoom(connID, req); err != nil {
			h.hub.Send(connID, chat.EventJoinError, joinErrorMessage(err))
		}

	case chat.EventSendMessage:
		var req chat.SendMessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			return
		}
		if err := h.chat.SendMessage(connID, req); err != nil {
			h.logger.Debug("message dropped", "conn_id", connID, "error", err)
		}

	case chat.EventGetRooms:
		h.chat.ListRooms(connID)

	case chat.EventStartCall:
		var req chat.StartCallRequest
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &req); err != nil {
				return
			}
		}
		if err := h.chat.StartCall(connID, req.IsVideo); err != nil {
			h.logger.Debug("start-call rejected", "conn_id", connID, "error", err)
		}

	case chat.EventJoinCall:
		if err := h.chat.JoinCall(connID); err != nil {
			h.logger.Debug("join-call rejected", "conn_id", connID, "error", err)
		}

	case chat.EventEndCall:
		if err := h.chat.EndCall(connID); err != nil {
			h.logger.Debug("end-call rejected", "conn_id", connID, "error", err)
		}

	case chat.EventWebRTCOffer:
		var sig chat.OfferSignal
		if err := json.Unmarshal(env.Data, &sig); err != nil {
			return
		}
		h.chat.RelayOffer(connID, sig)

	case chat.EventWebRTCAnswer:
		var sig chat.AnswerSignal
		if err := json.Unmarshal(env.Data, &sig); err != nil {
			return
		}
		h.chat.RelayAnswer(connID, sig)

	case chat.EventWebRTCCandidate:
		var sig chat.CandidateSignal
		if err := json.Unmarshal(env.Data, &sig); err != nil {
			return
		}
		h.chat.RelayICECandidate(connID, sig)

	default:
		h.logger.Debug("unknown event", "conn_id", connID, "event", env.Event)
	}
}

func roomErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrRoomLimit):
		return "Maximum number of rooms reached"
	case errors.Is(err, chat.ErrRoomExists):
		return "Room already exists"
	case errors.Is(err, chat.ErrMissingField):
		return "Room name and password are required"
	default:
		return "Could not create room"
	}
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, chat.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, chat.ErrBadCredential):
		return "Incorrect password"
	case errors.Is(err, chat.ErrAlreadyBound):
		return "Already in a room"
	case errors.Is(err, chat.ErrInvalidInvite):
		return "Invalid or expired invite"
	case errors.Is(err, chat.ErrMissingField):
		return "Room name and username are required"
	default:
		return "Could not join room"
	}
}
