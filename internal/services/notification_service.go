package services

import (
	"encoding/json"
	"errors"

	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/internal/services/dto"
	"guidia_backend/pkg/apperrors"
)

// NotificationService is the read side of the notification store: listing,
// read receipts and counts. Creation goes through the Delivery facade only.
type NotificationService interface {
	GetUserNotifications(userID string, criteria repositories.NotificationCriteria) (*dto.NotificationListResponse, error)
	MarkAsRead(userID, notificationID string) error
	MarkAllAsRead(userID string) (int64, error)
	GetUnreadCount(userID string) (int64, error)
}

type NotificationServiceImpl struct {
	notificationRepo repositories.NotificationRepository
}

func NewNotificationService(notificationRepo repositories.NotificationRepository) NotificationService {
	return &NotificationServiceImpl{notificationRepo: notificationRepo}
}

func (s *NotificationServiceImpl) GetUserNotifications(userID string, criteria repositories.NotificationCriteria) (*dto.NotificationListResponse, error) {
	if criteria.Page < 1 {
		criteria.Page = 1
	}
	if criteria.PageSize < 1 {
		criteria.PageSize = 20
	}

	notifications, total, err := s.notificationRepo.FindUserNotifications(userID, criteria)
	if err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}

	unread, err := s.notificationRepo.GetUnreadCount(userID)
	if err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}

	responses := make([]dto.NotificationResponse, 0, len(notifications))
	for i := range notifications {
		responses = append(responses, toNotificationResponse(&notifications[i]))
	}

	return &dto.NotificationListResponse{
		Notifications: responses,
		Total:         total,
		UnreadCount:   unread,
		Page:          criteria.Page,
		PageSize:      criteria.PageSize,
	}, nil
}

// MarkAsRead flips the read flag. Only the owner may do it; marking an
// already-read notification is a harmless no-op.
func (s *NotificationServiceImpl) MarkAsRead(userID, notificationID string) error {
	notification, err := s.notificationRepo.FindByID(notificationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.ErrStorageFailure(err)
	}
	if notification.UserID != userID {
		return apperrors.NewForbiddenError("notification belongs to another user")
	}
	if notification.IsRead {
		return nil
	}

	if err := s.notificationRepo.MarkAsRead(notificationID); err != nil {
		if errors.Is(err, repositories.ErrNotificationNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.ErrStorageFailure(err)
	}
	return nil
}

func (s *NotificationServiceImpl) MarkAllAsRead(userID string) (int64, error) {
	count, err := s.notificationRepo.MarkAllAsRead(userID)
	if err != nil {
		return 0, apperrors.ErrStorageFailure(err)
	}
	return count, nil
}

func (s *NotificationServiceImpl) GetUnreadCount(userID string) (int64, error) {
	count, err := s.notificationRepo.GetUnreadCount(userID)
	if err != nil {
		return 0, apperrors.ErrStorageFailure(err)
	}
	return count, nil
}

func toNotificationResponse(n *models.Notification) dto.NotificationResponse {
	resp := dto.NotificationResponse{
		ID:        n.ID,
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Priority:  n.Priority,
		IsRead:    n.IsRead,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
	if len(n.Metadata) > 0 {
		var metadata map[string]interface{}
		if err := json.Unmarshal(n.Metadata, &metadata); err == nil {
			resp.Metadata = metadata
		}
	}
	return resp
}
