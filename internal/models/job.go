package models

import "time"

type JobStatus string

const (
	JobStatusActive JobStatus = "active"
	JobStatusClosed JobStatus = "closed"
	JobStatusDraft  JobStatus = "draft"
)

// Job is owned by the postings service; the notification core only reads the
// deadline and gates re-notification on the two flags. The flags are reset
// exclusively by the maintenance tool (cmd/tools/reset-flags), never from a
// normal event trigger.
type Job struct {
	BaseModel
	CompanyID        string    `gorm:"index"`
	Title            string    `gorm:"not null"`
	Status           JobStatus `gorm:"default:'active';index"`
	Deadline         *time.Time
	NotifiedExpiring bool `gorm:"default:false"`
	NotifiedDeadline bool `gorm:"default:false"`
}
