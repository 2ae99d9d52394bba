package workers

import (
	"testing"
	"time"

	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/internal/services"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.Notification{},
		&models.NotificationDelivery{},
		&models.SecurityAuditLog{},
	))
	return db
}

func newWorker(t *testing.T, db *gorm.DB) *JobNotificationWorker {
	t.Helper()

	userRepo := repositories.NewUserRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	dispatcher := services.NewDispatcher(notificationRepo, jobRepo, userRepo, time.Hour)
	audit := services.NewAuditService(repositories.NewAuditRepository(db))
	delivery := services.NewDelivery(dispatcher, userRepo, audit, nil)

	return NewJobNotificationWorker(jobRepo, delivery, 30*time.Minute, 48*time.Hour)
}

func seed(t *testing.T, db *gorm.DB) {
	t.Helper()
	users := []models.User{
		{BaseModel: models.BaseModel{ID: "company-1"}, Name: "Acme", Email: "acme@guidia.example", Role: models.UserRoleCompany},
		{BaseModel: models.BaseModel{ID: "student-1"}, Name: "Student One", Email: "s1@guidia.example", Role: models.UserRoleStudent},
		{BaseModel: models.BaseModel{ID: "student-2"}, Name: "Student Two", Email: "s2@guidia.example", Role: models.UserRoleStudent},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}
}

func TestSweep_ExpiringJobNotifiedOnce(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	worker := newWorker(t, db)

	deadline := time.Now().Add(12 * time.Hour)
	require.NoError(t, db.Create(&models.Job{
		BaseModel: models.BaseModel{ID: "job-1"},
		CompanyID: "company-1",
		Title:     "Frontend Intern",
		Status:    models.JobStatusActive,
		Deadline:  &deadline,
	}).Error)

	worker.Sweep()
	worker.Sweep()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", "company-1", repositories.NotificationTypeJobExpiring).
		Count(&count).Error)
	assert.EqualValues(t, 1, count, "repeat sweeps must not re-notify")

	var job models.Job
	require.NoError(t, db.First(&job, "id = ?", "job-1").Error)
	assert.True(t, job.NotifiedExpiring)
}

func TestSweep_PastDeadlineNotified(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	worker := newWorker(t, db)

	deadline := time.Now().Add(-time.Hour)
	require.NoError(t, db.Create(&models.Job{
		BaseModel: models.BaseModel{ID: "job-1"},
		CompanyID: "company-1",
		Title:     "Backend Intern",
		Status:    models.JobStatusActive,
		Deadline:  &deadline,
	}).Error)

	worker.Sweep()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", "company-1", repositories.NotificationTypeJobDeadline).
		Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSweep_AnnouncesNewPostingToStudents(t *testing.T) {
	db := newTestDB(t)
	seed(t, db)
	worker := newWorker(t, db)

	require.NoError(t, db.Create(&models.Job{
		BaseModel: models.BaseModel{ID: "job-1"},
		CompanyID: "company-1",
		Title:     "Data Analyst",
		Status:    models.JobStatusActive,
	}).Error)

	worker.Sweep()
	worker.Sweep()

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("type = ?", repositories.NotificationTypeNewJobPosting).
		Count(&count).Error)
	assert.EqualValues(t, 2, count, "one per student, overlap-safe")
}
