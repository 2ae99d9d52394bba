package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"guidia_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotificationNotFound    = errors.New("notification not found")
	ErrInvalidNotificationData = errors.New("invalid notification data")
	ErrDuplicateDelivery       = errors.New("delivery key already claimed")
)

// Notification type tags. The entity a tag refers to travels in Metadata
// and, for idempotent events, in the delivery key's EntityRef.
const (
	NotificationTypeNewJobPosting        = "new_job_posting"
	NotificationTypeJobExpiring          = "job_expiring"
	NotificationTypeJobDeadline          = "job_deadline"
	NotificationTypeNewMessage           = "new_message"
	NotificationTypePlatformAnnouncement = "platform_announcement"
	NotificationTypeSecurityAlert        = "security_alert"
	NotificationTypeAppointmentReminder  = "appointment_reminder"
)

func IsValidNotificationType(notificationType string) bool {
	validTypes := map[string]bool{
		NotificationTypeNewJobPosting:        true,
		NotificationTypeJobExpiring:          true,
		NotificationTypeJobDeadline:          true,
		NotificationTypeNewMessage:           true,
		NotificationTypePlatformAnnouncement: true,
		NotificationTypeSecurityAlert:        true,
		NotificationTypeAppointmentReminder:  true,
	}
	return validTypes[notificationType]
}

// Search criteria for notifications
type NotificationCriteria struct {
	UnreadOnly bool      `form:"unread_only"`
	Type       string    `form:"type"`
	DateFrom   time.Time `form:"date_from"`
	DateTo     time.Time `form:"date_to"`
	Page       int       `form:"page" binding:"min=0"`
	PageSize   int       `form:"page_size" binding:"min=0,max=100"`
}

type NotificationRepository interface {
	Create(notification *models.Notification) error
	// CreateWithDeliveryKey persists the notification and claims its
	// idempotency key in one transaction. Returns ErrDuplicateDelivery,
	// with nothing written, when the key is already claimed.
	CreateWithDeliveryKey(notification *models.Notification, entityRef string) error
	FindByID(id string) (*models.Notification, error)
	FindUserNotifications(userID string, criteria NotificationCriteria) ([]models.Notification, int64, error)
	MarkAsRead(notificationID string) error
	MarkAllAsRead(userID string) (int64, error)
	GetUnreadCount(userID string) (int64, error)

	// Exists reports whether the user already has a notification of this
	// type inside the dedup window. Used for events without an entity ref.
	Exists(userID, notificationType string, window time.Duration) (bool, error)

	// ClearDeliveryKeys drops the idempotency keys for an entity so a later
	// trigger may notify again. Reachable only from the maintenance path.
	ClearDeliveryKeys(entityRef string) (int64, error)
}

type NotificationRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &NotificationRepositoryImpl{db: db}
}

func (r *NotificationRepositoryImpl) Create(notification *models.Notification) error {
	if err := r.validateNotification(notification); err != nil {
		return err
	}
	return r.db.Create(notification).Error
}

func (r *NotificationRepositoryImpl) CreateWithDeliveryKey(notification *models.Notification, entityRef string) error {
	if err := r.validateNotification(notification); err != nil {
		return err
	}
	if notification.ID == "" {
		notification.ID = uuid.New().String()
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		key := &models.NotificationDelivery{
			ID:             uuid.New().String(),
			UserID:         notification.UserID,
			Type:           notification.Type,
			EntityRef:      entityRef,
			NotificationID: notification.ID,
		}

		// The uniqueness constraint on (user, type, entity) is what makes
		// concurrent dispatches for the same logical event resolve to a
		// single notification.
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(key)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDuplicateDelivery
		}

		return tx.Create(notification).Error
	})
}

func (r *NotificationRepositoryImpl) FindByID(id string) (*models.Notification, error) {
	var notification models.Notification
	err := r.db.First(&notification, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &notification, nil
}

func (r *NotificationRepositoryImpl) FindUserNotifications(userID string, criteria NotificationCriteria) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	query := r.db.Where("user_id = ?", userID)

	if criteria.UnreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if criteria.Type != "" {
		query = query.Where("type = ?", criteria.Type)
	}

	if !criteria.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", criteria.DateFrom)
	}

	if !criteria.DateTo.IsZero() {
		query = query.Where("created_at <= ?", criteria.DateTo)
	}

	var total int64
	if err := query.Model(&models.Notification{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PageSize < 1 {
		criteria.PageSize = 20
	}

	limit := criteria.PageSize
	offset := (criteria.Page - 1) * criteria.PageSize

	// Newest first; read notifications stay in the list until an external
	// retention job removes them, which is not this core's concern.
	err := query.Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *NotificationRepositoryImpl) MarkAsRead(notificationID string) error {
	result := r.db.Model(&models.Notification{}).Where("id = ?", notificationID).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": time.Now(),
	})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *NotificationRepositoryImpl) MarkAllAsRead(userID string) (int64, error) {
	result := r.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).Updates(map[string]interface{}{
		"is_read": true,
		"read_at": time.Now(),
	})

	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) GetUnreadCount(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepositoryImpl) Exists(userID, notificationType string, window time.Duration) (bool, error) {
	var count int64
	cutoff := time.Now().Add(-window)
	err := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ? AND created_at >= ?", userID, notificationType, cutoff).
		Count(&count).Error
	return count > 0, err
}

func (r *NotificationRepositoryImpl) ClearDeliveryKeys(entityRef string) (int64, error) {
	result := r.db.Where("entity_ref = ?", entityRef).Delete(&models.NotificationDelivery{})
	return result.RowsAffected, result.Error
}

func (r *NotificationRepositoryImpl) validateNotification(notification *models.Notification) error {
	if notification.UserID == "" {
		return errors.New("user ID is required")
	}

	if notification.Type == "" {
		return errors.New("notification type is required")
	}

	if notification.Title == "" {
		return errors.New("notification title is required")
	}

	if !IsValidNotificationType(notification.Type) {
		return fmt.Errorf("invalid notification type: %s", notification.Type)
	}

	if notification.Priority == "" {
		notification.Priority = models.PriorityMedium
	}
	if !models.IsValidPriority(notification.Priority) {
		return fmt.Errorf("invalid notification priority: %s", notification.Priority)
	}

	if notification.TargetRole != "" && !models.IsValidUserRole(notification.TargetRole) {
		return fmt.Errorf("invalid target role: %s", notification.TargetRole)
	}

	if len(notification.Metadata) > 0 {
		if !json.Valid(notification.Metadata) {
			return ErrInvalidNotificationData
		}
	}

	return nil
}
