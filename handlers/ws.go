package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"appispot/realtime"
	"appispot/services/chat"
	"appispot/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait).
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the web client's origin once it is fixed.
		return true
	},
}

// wsClient is one live connection. Its buffered send channel backs the
// session's Sink so bus deliveries never block a publisher.
type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	session *realtime.Session

	relay    chat.ChatService
	registry *realtime.Registry

	closeOnce sync.Once
}

// Deliver implements realtime.Sink. Events for slow consumers are dropped
// rather than blocking the room.
func (c *wsClient) Deliver(event []byte) {
	select {
	case c.send <- event:
	default:
		utils.GetLogger().Warn("dropping event for slow websocket client",
			zap.String("sessionId", c.session.ID))
	}
}

// Close implements realtime.Sink.
func (c *wsClient) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// inboundEvent is the client→server message envelope.
type inboundEvent struct {
	Type    string `json:"type"`
	ChatID  string `json:"chatId"`
	Content string `json:"content,omitempty"`
}

// WSHandler upgrades chat connections and bridges them to the relay.
type WSHandler struct {
	Relay    chat.ChatService
	Registry *realtime.Registry
}

// ServeWS handles GET /ws/chat. The caller is identified by the auth
// middleware before the upgrade.
func (h *WSHandler) ServeWS(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.GetLogger().Error("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:     conn,
		send:     make(chan []byte, 256),
		relay:    h.Relay,
		registry: h.Registry,
	}
	client.session = realtime.NewSession(uuid.New().String(), userID.(string), client)
	h.Registry.Add(client.session)

	utils.GetLogger().Info("websocket session connected",
		zap.String("sessionId", client.session.ID),
		zap.String("userId", client.session.UserID))

	go client.writePump()
	go client.readPump()
}

func (c *wsClient) disconnect() {
	for _, room := range c.session.Rooms() {
		c.relay.LeaveRoom(c.session, room)
	}
	c.registry.Remove(c.session.ID)
	c.Close()
	_ = c.conn.Close()
}

// readPump pumps inbound events from the connection into the relay.
func (c *wsClient) readPump() {
	defer c.disconnect()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.GetLogger().Warn("websocket read error",
					zap.String("sessionId", c.session.ID), zap.Error(err))
			}
			break
		}
		c.handleEvent(message)
	}
}

// writePump pumps outbound events from the send channel to the connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.disconnect()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) handleEvent(raw []byte) {
	var ev inboundEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		c.sendError("", "malformed event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch ev.Type {
	case "join_chat":
		if err := c.relay.JoinRoom(ctx, c.session, ev.ChatID); err != nil {
			c.sendError(ev.ChatID, err.Error())
		}
	case "send_message":
		if _, err := c.relay.SendMessage(ctx, c.session.UserID, ev.ChatID, ev.Content); err != nil {
			c.sendError(ev.ChatID, err.Error())
		}
	case "mark_read":
		if err := c.relay.MarkRead(ctx, c.session.UserID, ev.ChatID); err != nil {
			c.sendError(ev.ChatID, err.Error())
		}
	default:
		c.sendError(ev.ChatID, "unknown event type: "+ev.Type)
	}
}

func (c *wsClient) sendError(chatID, message string) {
	data, err := json.Marshal(chat.Event{Type: "error", Payload: map[string]string{
		"chatId":  chatID,
		"message": message,
	}})
	if err != nil {
		return
	}
	c.Deliver(data)
}
