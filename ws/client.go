package ws

import (
	"encoding/json"
	"sync"

	"guidia_backend/internal/logger"
	"guidia_backend/internal/services/chat"

	"github.com/gorilla/websocket"
)

type IncomingMessage struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan any

	// done is closed by shutdown; Send itself is never closed, so any
	// goroutine still holding the client can attempt a send safely.
	done     chan struct{}
	doneOnce sync.Once

	Manager     *Manager
	ChatService *chat.ChatService
}

// shutdown stops the pumps. Safe to call more than once; the manager calls
// it on eviction and on reconnect replacement.
func (c *Client) shutdown() {
	c.doneOnce.Do(func() { close(c.done) })
}

// trySend queues a payload unless the client is shutting down.
func (c *Client) trySend(payload any) {
	select {
	case c.Send <- payload:
	case <-c.done:
	}
}

func (c *Client) readPump() {
	defer func() {
		c.Manager.unregister <- c
		c.Conn.Close()
	}()

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.WithError(err).Warn("ws read error", "user_id", c.UserID)
			}
			return
		}

		var msg IncomingMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			logger.WithError(err).Warn("ws message unparseable", "user_id", c.UserID)
			continue
		}

		c.handleMessage(msg)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg := <-c.Send:
			if err := c.Conn.WriteJSON(msg); err != nil {
				logger.WithError(err).Warn("ws write error", "user_id", c.UserID)
				return
			}
		case <-c.done:
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			c.Conn.Close()
			return
		}
	}
}

func (c *Client) handleMessage(msg IncomingMessage) {
	switch msg.Action {

	case "send_message":
		var payload struct {
			ConversationID string `json:"conversation_id"`
			Content        string `json:"content"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("invalid send_message payload")
			return
		}
		created, err := c.ChatService.SendMessage(c.UserID, payload.ConversationID, payload.Content)
		if err != nil {
			logger.WithError(err).Warn("ws send_message failed", "user_id", c.UserID)
			c.sendError("message could not be sent")
			return
		}
		c.trySend(map[string]any{"action": "message_sent", "message": created})

	case "mark_read":
		var payload struct {
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.sendError("invalid mark_read payload")
			return
		}
		count, err := c.ChatService.MarkRead(c.UserID, payload.ConversationID)
		if err != nil {
			logger.WithError(err).Warn("ws mark_read failed", "user_id", c.UserID)
			c.sendError("conversation could not be marked read")
			return
		}
		c.trySend(map[string]any{"action": "marked_read", "conversation_id": payload.ConversationID, "marked_count": count})

	default:
		logger.Warn("ws unhandled action", "action", msg.Action, "user_id", c.UserID)
	}
}

func (c *Client) sendError(message string) {
	select {
	case c.Send <- map[string]any{"action": "error", "message": message}:
	case <-c.done:
	default:
	}
}
