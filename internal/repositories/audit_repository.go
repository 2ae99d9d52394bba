package repositories

import (
	"time"

	"guidia_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audit query criteria
type AuditCriteria struct {
	ActorID  string    `form:"actor_id"`
	Event    string    `form:"event"`
	DateFrom time.Time `form:"date_from"`
	DateTo   time.Time `form:"date_to"`
	Limit    int       `form:"limit" binding:"min=0,max=1000"`
}

// AuditRepository is deliberately append-only: there is no update or delete
// method, and none may be added.
type AuditRepository interface {
	Create(entry *models.SecurityAuditLog) error
	Query(criteria AuditCriteria) ([]models.SecurityAuditLog, error)
}

type AuditRepositoryImpl struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &AuditRepositoryImpl{db: db}
}

func (r *AuditRepositoryImpl) Create(entry *models.SecurityAuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.db.Create(entry).Error
}

func (r *AuditRepositoryImpl) Query(criteria AuditCriteria) ([]models.SecurityAuditLog, error) {
	var entries []models.SecurityAuditLog
	query := r.db.Model(&models.SecurityAuditLog{})

	if criteria.ActorID != "" {
		query = query.Where("actor_id = ?", criteria.ActorID)
	}

	if criteria.Event != "" {
		query = query.Where("event = ?", criteria.Event)
	}

	if !criteria.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", criteria.DateFrom)
	}

	if !criteria.DateTo.IsZero() {
		query = query.Where("created_at <= ?", criteria.DateTo)
	}

	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit)
	}

	// Chronological, ties broken by id.
	err := query.Order("created_at ASC, id ASC").Find(&entries).Error
	return entries, err
}
