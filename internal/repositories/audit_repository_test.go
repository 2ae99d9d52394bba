package repositories

import (
	"testing"
	"time"

	"guidia_backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditCreate_FillsIDAndTimestamp(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditRepository(db)

	entry := &models.SecurityAuditLog{ActorID: "admin-1", Event: models.AuditEventAdminBroadcast, Detail: "d"}
	require.NoError(t, repo.Create(entry))

	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestAuditQuery_FiltersAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := NewAuditRepository(db)

	base := time.Now().Add(-time.Hour)
	events := []struct {
		actor string
		event string
	}{
		{"admin-1", models.AuditEventAdminBroadcast},
		{"", models.AuditEventAuthFailure},
		{"admin-1", models.AuditEventFlagReset},
	}
	for i, e := range events {
		entry := &models.SecurityAuditLog{
			ActorID:   e.actor,
			Event:     e.event,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(entry))
	}

	all, err := repo.Query(AuditCriteria{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, models.AuditEventAdminBroadcast, all[0].Event, "chronological order")

	byActor, err := repo.Query(AuditCriteria{ActorID: "admin-1"})
	require.NoError(t, err)
	assert.Len(t, byActor, 2)

	byEvent, err := repo.Query(AuditCriteria{Event: models.AuditEventAuthFailure})
	require.NoError(t, err)
	assert.Len(t, byEvent, 1)

	windowed, err := repo.Query(AuditCriteria{DateFrom: base.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, windowed, 1)
}
