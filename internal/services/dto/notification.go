package dto

import (
	"time"

	"guidia_backend/internal/models"
)

type NotificationResponse struct {
	ID        string                      `json:"id"`
	Type      string                      `json:"type"`
	Title     string                      `json:"title"`
	Message   string                      `json:"message"`
	Priority  models.NotificationPriority `json:"priority"`
	Metadata  map[string]interface{}      `json:"metadata,omitempty"`
	IsRead    bool                        `json:"is_read"`
	ReadAt    *time.Time                  `json:"read_at,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int64                  `json:"total"`
	UnreadCount   int64                  `json:"unread_count"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

type MarkAllReadResponse struct {
	MarkedCount int64 `json:"marked_count"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type BroadcastRequest struct {
	Role     string `json:"role" binding:"omitempty" validate:"omitempty,is-user-role"`
	Title    string `json:"title" binding:"required" validate:"required,min=1,max=200"`
	Message  string `json:"message" binding:"required" validate:"required,min=1,max=2000"`
	Priority string `json:"priority" validate:"omitempty,is-priority"`
}

type BroadcastResponse struct {
	Recipients int `json:"recipients"`
	Created    int `json:"created"`
	Suppressed int `json:"suppressed"`
}
