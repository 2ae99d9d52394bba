package models

import "time"

const (
	AuditEventAuthFailure    = "auth_failure"
	AuditEventAdminBroadcast = "admin_broadcast"
	AuditEventAdminAction    = "admin_action"
	AuditEventFlagReset      = "flag_reset"
)

// SecurityAuditLog is append-only: no update or delete path exists anywhere
// in the codebase. Total order is (created_at, id).
type SecurityAuditLog struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	ActorID   string    `gorm:"index"`
	Event     string    `gorm:"not null;index"`
	Detail    string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index"`
}

func (SecurityAuditLog) TableName() string {
	return "security_audit_logs"
}
