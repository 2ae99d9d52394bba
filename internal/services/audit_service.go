package services

import (
	"guidia_backend/internal/logger"
	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/pkg/apperrors"
)

// AuditService records security-relevant actions. A failed write is fatal to
// the audited action: callers must treat the returned error as a reason to
// abort, never as something to swallow.
type AuditService interface {
	Record(actorID, event, detail string) (*models.SecurityAuditLog, error)
	Query(criteria repositories.AuditCriteria) ([]models.SecurityAuditLog, error)
}

type AuditServiceImpl struct {
	auditRepo repositories.AuditRepository
}

func NewAuditService(auditRepo repositories.AuditRepository) AuditService {
	return &AuditServiceImpl{auditRepo: auditRepo}
}

func (s *AuditServiceImpl) Record(actorID, event, detail string) (*models.SecurityAuditLog, error) {
	entry := &models.SecurityAuditLog{
		ActorID: actorID,
		Event:   event,
		Detail:  detail,
	}
	if err := s.auditRepo.Create(entry); err != nil {
		logger.WithError(err).Error("audit write failed", "event", event, "actor_id", actorID)
		return nil, apperrors.ErrAuditWriteFailed(err)
	}
	return entry, nil
}

func (s *AuditServiceImpl) Query(criteria repositories.AuditCriteria) ([]models.SecurityAuditLog, error) {
	entries, err := s.auditRepo.Query(criteria)
	if err != nil {
		return nil, apperrors.ErrStorageFailure(err)
	}
	return entries, nil
}
