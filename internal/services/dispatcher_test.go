package services

import (
	"sync"
	"testing"
	"time"

	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/pkg/apperrors"

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

func seedUser(t *testing.T, db *gorm.DB, id string, role models.UserRole) *models.User {
	t.Helper()
	user := &models.User{
		BaseModel: models.BaseModel{ID: id},
		Name:      "User " + id,
		Email:     id + "@guidia.example",
		Role:      role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedJob(t *testing.T, db *gorm.DB, id string, deadline *time.Time) *models.Job {
	t.Helper()
	job := &models.Job{
		BaseModel: models.BaseModel{ID: id},
		CompanyID: "company-1",
		Title:     "Job " + id,
		Status:    models.JobStatusActive,
		Deadline:  deadline,
	}
	require.NoError(t, db.Create(job).Error)
	return job
}

func newDispatcher(t *testing.T, db *gorm.DB) Dispatcher {
	t.Helper()
	return NewDispatcher(
		repositories.NewNotificationRepository(db),
		repositories.NewJobRepository(db),
		repositories.NewUserRepository(db),
		time.Hour,
	)
}

func TestDispatch_CreatesNotification(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-33", models.UserRoleStudent)
	d := newDispatcher(t, db)

	result, err := d.Dispatch(Event{
		UserID:    "user-33",
		Type:      repositories.NotificationTypeNewJobPosting,
		Title:     "New job posting",
		Message:   "A new position was posted",
		EntityRef: "job-77",
		Metadata:  map[string]interface{}{"job_id": "job-77"},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)
	require.NotNil(t, result.Notification)
	assert.NotEmpty(t, result.Notification.ID)
	assert.Equal(t, models.PriorityMedium, result.Notification.Priority)
}

func TestDispatch_ConcurrentSameEvent_ExactlyOneCreated(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-33", models.UserRoleStudent)
	d := newDispatcher(t, db)

	const workers = 10
	outcomes := make([]DispatchOutcome, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := d.Dispatch(Event{
				UserID:    "user-33",
				Type:      repositories.NotificationTypeNewJobPosting,
				Title:     "New job posting",
				EntityRef: "job-77",
			})
			errs[i] = err
			if err == nil {
				outcomes[i] = result.Outcome
			}
		}(i)
	}
	wg.Wait()

	created, suppressed := 0, 0
	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		switch outcomes[i] {
		case OutcomeCreated:
			created++
		case OutcomeDuplicateSuppressed:
			suppressed++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, workers-1, suppressed)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestDispatch_JobFlagGate(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "company-1", models.UserRoleCompany)
	deadline := time.Now().Add(12 * time.Hour)
	seedJob(t, db, "job-5", &deadline)
	d := newDispatcher(t, db)

	event := Event{
		UserID:    "company-1",
		Type:      repositories.NotificationTypeJobExpiring,
		Title:     "Job posting expires soon",
		EntityRef: "job-5",
		JobID:     "job-5",
		JobFlag:   JobFlagExpiring,
	}

	result, err := d.Dispatch(event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)

	var job models.Job
	require.NoError(t, db.First(&job, "id = ?", "job-5").Error)
	assert.True(t, job.NotifiedExpiring, "flag set after the notification persisted")
	assert.False(t, job.NotifiedDeadline)

	result, err = d.Dispatch(event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyNotified, result.Outcome)
}

func TestDispatch_ResetAllowsRenotify(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "company-1", models.UserRoleCompany)
	deadline := time.Now().Add(12 * time.Hour)
	seedJob(t, db, "job-5", &deadline)
	d := newDispatcher(t, db)

	event := Event{
		UserID:    "company-1",
		Type:      repositories.NotificationTypeJobExpiring,
		Title:     "Job posting expires soon",
		EntityRef: "job-5",
		JobID:     "job-5",
		JobFlag:   JobFlagExpiring,
	}

	result, err := d.Dispatch(event)
	require.NoError(t, err)
	require.Equal(t, OutcomeCreated, result.Outcome)

	// Maintenance path: reset the flag and clear the delivery keys.
	jobRepo := repositories.NewJobRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	_, err = jobRepo.ResetNotificationFlags("job-5")
	require.NoError(t, err)
	_, err = notificationRepo.ClearDeliveryKeys("job-5")
	require.NoError(t, err)

	result, err = d.Dispatch(event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome, "reset re-arms the trigger")

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestDispatch_DedupWindowForRefLessEvents(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-1", models.UserRoleStudent)
	d := newDispatcher(t, db)

	event := Event{
		UserID: "user-1",
		Type:   repositories.NotificationTypeSecurityAlert,
		Title:  "Unusual sign-in",
	}

	result, err := d.Dispatch(event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, result.Outcome)

	result, err = d.Dispatch(event)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicateSuppressed, result.Outcome, "inside the dedup window")
}

func TestDispatch_ValidationErrors(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "user-1", models.UserRoleStudent)
	d := newDispatcher(t, db)

	_, err := d.Dispatch(Event{UserID: "user-1", Type: "bogus", Title: "t"})
	assert.Error(t, err)

	_, err = d.Dispatch(Event{UserID: "user-1", Type: repositories.NotificationTypeNewMessage})
	assert.Error(t, err, "title required")

	_, err = d.Dispatch(Event{UserID: "ghost", Type: repositories.NotificationTypeNewMessage, Title: "t"})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CodeNotFound, appErr.Code)
}
