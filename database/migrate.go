package database

import (
	"guidia_backend/internal/models"
	modelChat "guidia_backend/internal/models/chat"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Notification{},
		&models.NotificationDelivery{},
		&models.SecurityAuditLog{},
		&modelChat.Conversation{},
		&modelChat.Message{},
	)
}
