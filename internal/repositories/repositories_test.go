package repositories

import (
	"testing"
	"time"

	"guidia_backend/internal/models"

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

func TestCreateWithDeliveryKey_SuppressesDuplicates(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)

	first := &models.Notification{
		UserID: "user-1",
		Type:   NotificationTypeNewJobPosting,
		Title:  "New job posting",
	}
	require.NoError(t, repo.CreateWithDeliveryKey(first, "job-77"))

	second := &models.Notification{
		UserID: "user-1",
		Type:   NotificationTypeNewJobPosting,
		Title:  "New job posting",
	}
	err := repo.CreateWithDeliveryKey(second, "job-77")
	assert.ErrorIs(t, err, ErrDuplicateDelivery)

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Where("user_id = ?", "user-1").Count(&count).Error)
	assert.EqualValues(t, 1, count, "duplicate must not write a second notification")
}

func TestCreateWithDeliveryKey_DistinctEntitiesBothDeliver(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)

	for _, ref := range []string{"job-1", "job-2"} {
		n := &models.Notification{UserID: "user-1", Type: NotificationTypeNewJobPosting, Title: "New job posting"}
		require.NoError(t, repo.CreateWithDeliveryKey(n, ref))
	}

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestCreateWithDeliveryKey_SameEntityDifferentUsers(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)
	seedUser(t, db, "user-2", models.UserRoleStudent)

	for _, userID := range []string{"user-1", "user-2"} {
		n := &models.Notification{UserID: userID, Type: NotificationTypeNewJobPosting, Title: "New job posting"}
		require.NoError(t, repo.CreateWithDeliveryKey(n, "job-77"))
	}
}

func TestClearDeliveryKeys_AllowsRedelivery(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)

	n := &models.Notification{UserID: "user-1", Type: NotificationTypeJobExpiring, Title: "Job posting expires soon"}
	require.NoError(t, repo.CreateWithDeliveryKey(n, "job-5"))

	cleared, err := repo.ClearDeliveryKeys("job-5")
	require.NoError(t, err)
	assert.EqualValues(t, 1, cleared)

	again := &models.Notification{UserID: "user-1", Type: NotificationTypeJobExpiring, Title: "Job posting expires soon"}
	require.NoError(t, repo.CreateWithDeliveryKey(again, "job-5"))
}

func TestFindUserNotifications_FiltersAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)

	base := time.Now().Add(-3 * time.Hour)
	for i, typ := range []string{NotificationTypeNewMessage, NotificationTypeNewJobPosting, NotificationTypeNewMessage} {
		n := &models.Notification{
			UserID: "user-1",
			Type:   typ,
			Title:  "n",
		}
		require.NoError(t, repo.Create(n))
		require.NoError(t, db.Model(n).Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	all, total, err := repo.FindUserNotifications("user-1", NotificationCriteria{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.True(t, !all[0].CreatedAt.Before(all[1].CreatedAt), "newest first")

	messages, total, err := repo.FindUserNotifications("user-1", NotificationCriteria{Type: NotificationTypeNewMessage})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, messages, 2)
}

func TestMarkAsRead(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)

	n := &models.Notification{UserID: "user-1", Type: NotificationTypeNewMessage, Title: "n"}
	require.NoError(t, repo.Create(n))

	require.NoError(t, repo.MarkAsRead(n.ID))

	got, err := repo.FindByID(n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.NotNil(t, got.ReadAt)

	assert.ErrorIs(t, repo.MarkAsRead("missing"), ErrNotificationNotFound)
}

func TestMarkAllAsRead_ReturnsCount(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(&models.Notification{UserID: "user-1", Type: NotificationTypeNewMessage, Title: "n"}))
	}

	count, err := repo.MarkAllAsRead("user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	count, err = repo.MarkAllAsRead("user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
}

func TestExists_RespectsWindow(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)
	seedUser(t, db, "user-1", models.UserRoleStudent)

	n := &models.Notification{UserID: "user-1", Type: NotificationTypePlatformAnnouncement, Title: "n"}
	require.NoError(t, repo.Create(n))
	require.NoError(t, db.Model(n).Update("created_at", time.Now().Add(-2*time.Hour)).Error)

	exists, err := repo.Exists("user-1", NotificationTypePlatformAnnouncement, time.Hour)
	require.NoError(t, err)
	assert.False(t, exists, "outside the window")

	exists, err = repo.Exists("user-1", NotificationTypePlatformAnnouncement, 3*time.Hour)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreate_RejectsInvalidData(t *testing.T) {
	db := newTestDB(t)
	repo := NewNotificationRepository(db)

	err := repo.Create(&models.Notification{UserID: "user-1", Type: "bogus", Title: "n"})
	assert.Error(t, err)

	err = repo.Create(&models.Notification{UserID: "user-1", Type: NotificationTypeNewMessage})
	assert.Error(t, err, "title is required")
}
