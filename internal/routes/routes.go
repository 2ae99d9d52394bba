package routes

import (
	"guidia_backend/internal/handlers"
	"guidia_backend/internal/middleware"
	"guidia_backend/internal/models"
	"guidia_backend/internal/services"
	"guidia_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRoutes wires every endpoint. Admin routes sit behind the role gate;
// everything under /api requires authentication.
func SetupRoutes(
	router *gin.Engine,
	db *gorm.DB,
	h *handlers.AppHandlers,
	wsHandler *ws.Handler,
	audit services.AuditService,
) {
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.DBMiddleware(db))

	router.GET("/health", h.Health.Health)

	api := router.Group("/api")
	api.Use(middleware.AuthMiddleware(audit))
	{
		notifications := api.Group("/notifications")
		{
			notifications.GET("", h.Notification.List)
			notifications.GET("/unread-count", h.Notification.UnreadCount)
			notifications.PATCH("/:id/read", h.Notification.MarkAsRead)
			notifications.POST("/read-all", h.Notification.MarkAllAsRead)
		}

		chat := api.Group("/chat")
		{
			chat.POST("/conversations", h.Chat.StartConversation)
			chat.GET("/conversations", h.Chat.ListConversations)
			chat.POST("/conversations/:id/messages", h.Chat.SendMessage)
			chat.GET("/conversations/:id/messages", h.Chat.ListMessages)
			chat.POST("/conversations/:id/read", h.Chat.MarkRead)
		}

		api.GET("/ws", wsHandler.ServeWS)

		admin := api.Group("/admin")
		admin.Use(middleware.RoleMiddleware(models.UserRoleAdmin))
		{
			admin.POST("/broadcast", h.Notification.Broadcast)
			admin.GET("/audit", h.Audit.Query)
		}
	}
}
