package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"guidia_backend/internal/logger"
	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/pkg/apperrors"

	"gorm.io/datatypes"
)

// JobFlagKind names which per-job guard an event is gated by.
type JobFlagKind string

const (
	JobFlagNone     JobFlagKind = ""
	JobFlagExpiring JobFlagKind = "expiring"
	JobFlagDeadline JobFlagKind = "deadline"
)

// Event is one trigger asking for a notification. EntityRef, when set,
// identifies the triggering entity and makes the dispatch idempotent: the
// same (user, type, entity) never produces two notifications. Events without
// an EntityRef fall back to a time-window dedup per (user, type).
type Event struct {
	UserID     string
	Type       string
	Title      string
	Message    string
	Priority   models.NotificationPriority
	TargetRole models.UserRole
	Metadata   map[string]interface{}
	EntityRef  string

	// Set for job lifecycle events that are additionally guarded by a
	// persisted flag on the job row.
	JobID   string
	JobFlag JobFlagKind
}

type DispatchOutcome string

const (
	OutcomeCreated             DispatchOutcome = "created"
	OutcomeAlreadyNotified     DispatchOutcome = "already_notified"
	OutcomeDuplicateSuppressed DispatchOutcome = "duplicate_suppressed"
)

// DispatchResult reports what a dispatch did. Suppression is a success, not
// an error: the caller asked for at-most-once and got it.
type DispatchResult struct {
	Outcome      DispatchOutcome
	Notification *models.Notification

	// Degraded is set by the delivery layer when the notification was
	// persisted but could not be pushed live.
	Degraded bool
}

type Dispatcher interface {
	Dispatch(event Event) (*DispatchResult, error)
}

type DispatcherImpl struct {
	notificationRepo repositories.NotificationRepository
	jobRepo          repositories.JobRepository
	userRepo         repositories.UserRepository
	dedupWindow      time.Duration
	locks            keyedMutex
}

func NewDispatcher(
	notificationRepo repositories.NotificationRepository,
	jobRepo repositories.JobRepository,
	userRepo repositories.UserRepository,
	dedupWindow time.Duration,
) Dispatcher {
	return &DispatcherImpl{
		notificationRepo: notificationRepo,
		jobRepo:          jobRepo,
		userRepo:         userRepo,
		dedupWindow:      dedupWindow,
	}
}

// Dispatch runs the persist path for one event: validate, check the job flag
// guard if any, claim the idempotency key, write the notification, then set
// the flag. The flag is set only after the write succeeds, so a crash between
// the two steps can at worst re-notify, never lose the notification.
func (d *DispatcherImpl) Dispatch(event Event) (*DispatchResult, error) {
	if err := d.validate(event); err != nil {
		return nil, err
	}

	unlock := d.locks.Lock(event.UserID + "|" + event.Type + "|" + event.EntityRef)
	defer unlock()

	if event.JobFlag != JobFlagNone {
		done, err := d.jobFlagSet(event)
		if err != nil {
			return nil, err
		}
		if done {
			return &DispatchResult{Outcome: OutcomeAlreadyNotified}, nil
		}
	}

	notification, err := d.buildNotification(event)
	if err != nil {
		return nil, err
	}

	if event.EntityRef != "" {
		err = d.notificationRepo.CreateWithDeliveryKey(notification, event.EntityRef)
		if errors.Is(err, repositories.ErrDuplicateDelivery) {
			logger.Debug("dispatch suppressed by delivery key",
				"user_id", event.UserID, "type", event.Type, "entity_ref", event.EntityRef)
			return &DispatchResult{Outcome: OutcomeDuplicateSuppressed}, nil
		}
		if err != nil {
			return nil, apperrors.ErrStorageFailure(err)
		}
	} else {
		exists, err := d.notificationRepo.Exists(event.UserID, event.Type, d.dedupWindow)
		if err != nil {
			return nil, apperrors.ErrStorageFailure(err)
		}
		if exists {
			logger.Debug("dispatch suppressed by dedup window",
				"user_id", event.UserID, "type", event.Type)
			return &DispatchResult{Outcome: OutcomeDuplicateSuppressed}, nil
		}
		if err := d.notificationRepo.Create(notification); err != nil {
			return nil, apperrors.ErrStorageFailure(err)
		}
	}

	if event.JobFlag != JobFlagNone {
		if err := d.setJobFlag(event); err != nil {
			// The notification is already persisted. Leaving the flag unset
			// risks a duplicate on the next sweep, which beats losing it.
			logger.WithError(err).Error("failed to set job notification flag",
				"job_id", event.JobID, "flag", string(event.JobFlag))
		}
	}

	return &DispatchResult{Outcome: OutcomeCreated, Notification: notification}, nil
}

func (d *DispatcherImpl) validate(event Event) error {
	if event.UserID == "" {
		return apperrors.NewBadRequestError("user ID is required")
	}
	if !repositories.IsValidNotificationType(event.Type) {
		return apperrors.NewBadRequestError(fmt.Sprintf("invalid notification type: %s", event.Type))
	}
	if event.Title == "" {
		return apperrors.NewBadRequestError("notification title is required")
	}
	if event.JobFlag != JobFlagNone && event.JobID == "" {
		return apperrors.NewBadRequestError("job flag events require a job ID")
	}

	if _, err := d.userRepo.FindByID(event.UserID); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return apperrors.ErrNotFound(err)
		}
		return apperrors.ErrStorageFailure(err)
	}
	return nil
}

func (d *DispatcherImpl) buildNotification(event Event) (*models.Notification, error) {
	priority := event.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	var metadata datatypes.JSON
	if len(event.Metadata) > 0 {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return nil, apperrors.NewBadRequestError("notification metadata is not serializable")
		}
		metadata = raw
	}

	return &models.Notification{
		UserID:     event.UserID,
		Type:       event.Type,
		Title:      event.Title,
		Message:    event.Message,
		Priority:   priority,
		TargetRole: event.TargetRole,
		Metadata:   metadata,
	}, nil
}

func (d *DispatcherImpl) jobFlagSet(event Event) (bool, error) {
	expiring, deadline, err := d.jobRepo.GetNotificationFlags(event.JobID)
	if err != nil {
		if errors.Is(err, repositories.ErrJobNotFound) {
			return false, apperrors.ErrNotFound(err)
		}
		return false, apperrors.ErrStorageFailure(err)
	}
	switch event.JobFlag {
	case JobFlagExpiring:
		return expiring, nil
	case JobFlagDeadline:
		return deadline, nil
	}
	return false, nil
}

func (d *DispatcherImpl) setJobFlag(event Event) error {
	var err error
	switch event.JobFlag {
	case JobFlagExpiring:
		_, err = d.jobRepo.SetNotifiedExpiring(event.JobID)
	case JobFlagDeadline:
		_, err = d.jobRepo.SetNotifiedDeadline(event.JobID)
	}
	return err
}

// keyedMutex serializes work per string key. Entries are dropped once the
// last holder releases, so the map does not grow with key cardinality.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedLock)
	}
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
