package repositories

import (
	"errors"
	"time"

	"guidia_backend/internal/models"

	"gorm.io/gorm"
)

var ErrJobNotFound = errors.New("job not found")

type JobRepository interface {
	FindByID(id string) (*models.Job, error)
	FindActiveJobs() ([]models.Job, error)
	FindByStatus(status models.JobStatus) ([]models.Job, error)

	// FindExpiringJobs returns active jobs whose deadline falls inside the
	// window and whose expiring flag is still unset.
	FindExpiringJobs(until time.Time) ([]models.Job, error)
	// FindPastDeadlineJobs returns active jobs past their deadline whose
	// deadline flag is still unset.
	FindPastDeadlineJobs(now time.Time) ([]models.Job, error)
	// FindRecentActiveJobs returns active jobs created at or after the
	// cutoff. Used by the posting-announcement sweep; per-recipient delivery
	// keys keep re-scans from duplicating notifications.
	FindRecentActiveJobs(since time.Time) ([]models.Job, error)

	// SetNotifiedExpiring flips the flag only when it is still false; the
	// returned count tells the caller whether this process won the claim.
	SetNotifiedExpiring(jobID string) (int64, error)
	SetNotifiedDeadline(jobID string) (int64, error)
	GetNotificationFlags(jobID string) (expiring, deadline bool, err error)

	// Maintenance only. Not reachable from event triggers.
	ResetNotificationFlags(jobID string) (int64, error)
	ResetNotificationFlagsByStatus(status models.JobStatus) (int64, error)
}

type JobRepositoryImpl struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &JobRepositoryImpl{db: db}
}

func (r *JobRepositoryImpl) FindByID(id string) (*models.Job, error) {
	var job models.Job
	err := r.db.First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (r *JobRepositoryImpl) FindActiveJobs() ([]models.Job, error) {
	return r.FindByStatus(models.JobStatusActive)
}

func (r *JobRepositoryImpl) FindByStatus(status models.JobStatus) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.Where("status = ?", status).Find(&jobs).Error
	return jobs, err
}

func (r *JobRepositoryImpl) FindExpiringJobs(until time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("status = ? AND notified_expiring = ? AND deadline IS NOT NULL AND deadline <= ? AND deadline > ?",
			models.JobStatusActive, false, until, time.Now()).
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepositoryImpl) FindPastDeadlineJobs(now time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("status = ? AND notified_deadline = ? AND deadline IS NOT NULL AND deadline <= ?",
			models.JobStatusActive, false, now).
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepositoryImpl) FindRecentActiveJobs(since time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.
		Where("status = ? AND created_at >= ?", models.JobStatusActive, since).
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepositoryImpl) SetNotifiedExpiring(jobID string) (int64, error) {
	result := r.db.Model(&models.Job{}).
		Where("id = ? AND notified_expiring = ?", jobID, false).
		Update("notified_expiring", true)
	return result.RowsAffected, result.Error
}

func (r *JobRepositoryImpl) SetNotifiedDeadline(jobID string) (int64, error) {
	result := r.db.Model(&models.Job{}).
		Where("id = ? AND notified_deadline = ?", jobID, false).
		Update("notified_deadline", true)
	return result.RowsAffected, result.Error
}

func (r *JobRepositoryImpl) GetNotificationFlags(jobID string) (bool, bool, error) {
	job, err := r.FindByID(jobID)
	if err != nil {
		return false, false, err
	}
	return job.NotifiedExpiring, job.NotifiedDeadline, nil
}

func (r *JobRepositoryImpl) ResetNotificationFlags(jobID string) (int64, error) {
	result := r.db.Model(&models.Job{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"notified_expiring": false,
			"notified_deadline": false,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, ErrJobNotFound
	}
	return result.RowsAffected, nil
}

func (r *JobRepositoryImpl) ResetNotificationFlagsByStatus(status models.JobStatus) (int64, error) {
	result := r.db.Model(&models.Job{}).
		Where("status = ?", status).
		Updates(map[string]interface{}{
			"notified_expiring": false,
			"notified_deadline": false,
		})
	return result.RowsAffected, result.Error
}
