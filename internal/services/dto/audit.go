package dto

import "time"

type AuditEntryResponse struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"actor_id,omitempty"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AuditListResponse struct {
	Entries []AuditEntryResponse `json:"entries"`
	Total   int                  `json:"total"`
}
