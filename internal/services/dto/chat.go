package dto

import "time"

// PeerID is an opaque user identifier, not necessarily a UUID; existence is
// checked by the service, not the validator.
type StartConversationRequest struct {
	PeerID string `json:"peer_id" binding:"required" validate:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" binding:"required" validate:"required,min=1,max=5000"`
}

type ConversationResponse struct {
	ID            string     `json:"id"`
	PeerID        string     `json:"peer_id"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int64      `json:"unread_count"`
}

type MessageResponse struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	Content        string     `json:"content"`
	Seq            int64      `json:"seq"`
	IsRead         bool       `json:"is_read"`
	ReadAt         *time.Time `json:"read_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

type MarkReadResponse struct {
	MarkedCount int64 `json:"marked_count"`
}
