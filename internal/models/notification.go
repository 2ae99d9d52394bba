package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityMedium NotificationPriority = "medium"
	PriorityHigh   NotificationPriority = "high"
)

type Notification struct {
	BaseModel
	UserID     string `gorm:"not null;index"`
	Type       string `gorm:"not null;index"` // "new_job_posting", "job_expiring", "new_message", ...
	Title      string `gorm:"not null"`
	Message    string
	Priority   NotificationPriority `gorm:"default:'medium'"`
	TargetRole UserRole             `gorm:"index"`
	Metadata   datatypes.JSON       `gorm:"type:jsonb"` // {"job_id": "...", "conversation_id": "..."}
	IsRead     bool                 `gorm:"default:false"`
	ReadAt     *time.Time
}

// NotificationDelivery is the idempotency-key table: one row per logical
// delivery, enforced by a uniqueness constraint so the store itself rejects
// duplicates atomically instead of relying on check-then-set.
type NotificationDelivery struct {
	ID             string `gorm:"type:uuid;primaryKey"`
	UserID         string `gorm:"not null;uniqueIndex:idx_delivery_key"`
	Type           string `gorm:"not null;uniqueIndex:idx_delivery_key"`
	EntityRef      string `gorm:"not null;uniqueIndex:idx_delivery_key"`
	NotificationID string
	CreatedAt      time.Time
}

func IsValidPriority(p NotificationPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
