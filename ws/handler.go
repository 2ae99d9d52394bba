package ws

import (
	"net/http"

	"guidia_backend/internal/logger"
	"guidia_backend/internal/services/chat"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the frontend origin once it is fixed
	},
}

type Handler struct {
	Manager     *Manager
	ChatService *chat.ChatService
}

func NewHandler(manager *Manager, chatService *chat.ChatService) *Handler {
	return &Handler{Manager: manager, ChatService: chatService}
}

// ServeWS upgrades an authenticated request. Runs behind AuthMiddleware, so
// userID is already on the context.
func (h *Handler) ServeWS(c *gin.Context) {
	userIDVal, exists := c.Get("userID")
	userID, _ := userIDVal.(string)
	if !exists || userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Warn("ws upgrade failed", "user_id", userID)
		return
	}

	client := &Client{
		UserID:      userID,
		Conn:        conn,
		Send:        make(chan any, 256),
		done:        make(chan struct{}),
		Manager:     h.Manager,
		ChatService: h.ChatService,
	}

	h.Manager.register <- client

	go client.readPump()
	go client.writePump()
}
