package handlers

import (
	"guidia_backend/internal/services"
	"guidia_backend/internal/services/chat"
	"guidia_backend/internal/validator"
)

// AppHandlers bundles every HTTP handler for route registration.
type AppHandlers struct {
	Notification *NotificationHandler
	Chat         *ChatHandler
	Audit        *AuditHandler
	Health       *HealthHandler
}

func NewAppHandlers(
	v *validator.Validator,
	notificationService services.NotificationService,
	delivery *services.Delivery,
	chatService *chat.ChatService,
	auditService services.AuditService,
) *AppHandlers {
	return &AppHandlers{
		Notification: NewNotificationHandler(v, notificationService, delivery),
		Chat:         NewChatHandler(v, chatService),
		Audit:        NewAuditHandler(v, auditService),
		Health:       NewHealthHandler(v),
	}
}
