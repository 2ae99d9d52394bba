package services

import (
	"fmt"
	"sync"

	"guidia_backend/internal/email"
	"guidia_backend/internal/logger"
	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/internal/services/dto"
	"guidia_backend/pkg/apperrors"
)

// Pusher delivers a payload to a user's live connections. The websocket hub
// implements this; Delivery never imports it directly because the hub is
// constructed after the services are.
type Pusher interface {
	PushToUser(userID string, payload interface{}) error
}

// Delivery is the single entry point for emitting notifications. Persisting
// is mandatory and its failure is the caller's failure; live push and email
// are best effort and only degrade the result.
type Delivery struct {
	dispatcher Dispatcher
	userRepo   repositories.UserRepository
	audit      AuditService
	email      email.Provider

	mu     sync.RWMutex
	pusher Pusher
}

func NewDelivery(
	dispatcher Dispatcher,
	userRepo repositories.UserRepository,
	audit AuditService,
	emailProvider email.Provider,
) *Delivery {
	return &Delivery{
		dispatcher: dispatcher,
		userRepo:   userRepo,
		audit:      audit,
		email:      emailProvider,
	}
}

// BindPusher attaches the live-push channel. Until it is called every send
// runs store-only.
func (d *Delivery) BindPusher(p Pusher) {
	d.mu.Lock()
	d.pusher = p
	d.mu.Unlock()
}

// Send persists the event through the dispatcher and then attempts the
// best-effort channels. A nil error with Degraded set means the notification
// is safely stored but was not pushed live.
func (d *Delivery) Send(event Event) (*DispatchResult, error) {
	result, err := d.dispatcher.Dispatch(event)
	if err != nil {
		return nil, err
	}
	if result.Outcome != OutcomeCreated {
		return result, nil
	}

	d.pushLive(result)
	d.sendEmail(event, result)

	return result, nil
}

func (d *Delivery) pushLive(result *DispatchResult) {
	d.mu.RLock()
	pusher := d.pusher
	d.mu.RUnlock()

	n := result.Notification
	if pusher == nil {
		logger.Warn("live push unavailable, notification stored only",
			"user_id", n.UserID, "type", n.Type, "notification_id", n.ID)
		result.Degraded = true
		return
	}

	payload := map[string]interface{}{
		"action":       "notification",
		"notification": n,
	}
	if err := pusher.PushToUser(n.UserID, payload); err != nil {
		logger.WithError(err).Warn("live push failed, notification stored only",
			"user_id", n.UserID, "notification_id", n.ID)
		result.Degraded = true
	}
}

// sendEmail mails high-priority notifications. Failures never surface to the
// caller.
func (d *Delivery) sendEmail(event Event, result *DispatchResult) {
	if d.email == nil || event.Priority != models.PriorityHigh {
		return
	}

	user, err := d.userRepo.FindByID(event.UserID)
	if err != nil {
		logger.WithError(err).Warn("email skipped, recipient lookup failed", "user_id", event.UserID)
		result.Degraded = true
		return
	}
	if err := d.email.Send(user.Email, event.Title, event.Message); err != nil {
		logger.WithError(err).Warn("email delivery failed", "user_id", event.UserID)
		result.Degraded = true
	}
}

// NotifyNewMessage emits the peer's notification for a chat message. The
// message ID is the entity ref, so retries and races collapse to one
// notification while distinct messages are never suppressed against each
// other.
func (d *Delivery) NotifyNewMessage(recipientID, senderName, conversationID, messageID string) error {
	_, err := d.Send(Event{
		UserID:    recipientID,
		Type:      repositories.NotificationTypeNewMessage,
		Title:     "New message",
		Message:   fmt.Sprintf("You have a new message from %s", senderName),
		Priority:  models.PriorityMedium,
		EntityRef: messageID,
		Metadata: map[string]interface{}{
			"conversation_id": conversationID,
			"message_id":      messageID,
		},
	})
	return err
}

// NotifyJobPosted announces a new posting to every student. The job ID is
// the entity ref, so re-running the sweep over the same posting creates
// nothing new.
func (d *Delivery) NotifyJobPosted(job *models.Job) (created int, err error) {
	students, err := d.userRepo.FindByRole(models.UserRoleStudent)
	if err != nil {
		return 0, apperrors.ErrStorageFailure(err)
	}

	for _, student := range students {
		result, err := d.Send(Event{
			UserID:     student.ID,
			Type:       repositories.NotificationTypeNewJobPosting,
			Title:      "New job posting",
			Message:    fmt.Sprintf("A new position was posted: %s", job.Title),
			Priority:   models.PriorityMedium,
			TargetRole: models.UserRoleStudent,
			EntityRef:  job.ID,
			Metadata: map[string]interface{}{
				"job_id":    job.ID,
				"job_title": job.Title,
			},
		})
		if err != nil {
			logger.WithError(err).Error("job posting notification failed",
				"job_id", job.ID, "user_id", student.ID)
			continue
		}
		if result.Outcome == OutcomeCreated {
			created++
		}
	}
	return created, nil
}

// SendBroadcast fans a platform announcement out to every user of a role, or
// to everyone when role is empty. The audit record is written first: a
// privileged action that cannot be audited does not happen.
func (d *Delivery) SendBroadcast(actorID string, role models.UserRole, req dto.BroadcastRequest) (*dto.BroadcastResponse, error) {
	detail := fmt.Sprintf("broadcast %q to role %q", req.Title, roleOrAll(role))
	if _, err := d.audit.Record(actorID, models.AuditEventAdminBroadcast, detail); err != nil {
		return nil, err
	}

	recipients, err := d.broadcastRecipients(role)
	if err != nil {
		return nil, err
	}

	priority := models.NotificationPriority(req.Priority)
	if priority == "" {
		priority = models.PriorityMedium
	}

	resp := &dto.BroadcastResponse{Recipients: len(recipients)}
	for _, user := range recipients {
		result, err := d.Send(Event{
			UserID:     user.ID,
			Type:       repositories.NotificationTypePlatformAnnouncement,
			Title:      req.Title,
			Message:    req.Message,
			Priority:   priority,
			TargetRole: role,
		})
		if err != nil {
			logger.WithError(err).Error("broadcast send failed", "user_id", user.ID)
			continue
		}
		switch result.Outcome {
		case OutcomeCreated:
			resp.Created++
		case OutcomeDuplicateSuppressed:
			resp.Suppressed++
		}
	}
	return resp, nil
}

func (d *Delivery) broadcastRecipients(role models.UserRole) ([]models.User, error) {
	if role != "" {
		users, err := d.userRepo.FindByRole(role)
		if err != nil {
			return nil, apperrors.ErrStorageFailure(err)
		}
		return users, nil
	}

	var all []models.User
	for _, r := range []models.UserRole{models.UserRoleStudent, models.UserRoleCompany, models.UserRoleCounselor, models.UserRoleAdmin} {
		users, err := d.userRepo.FindByRole(r)
		if err != nil {
			return nil, apperrors.ErrStorageFailure(err)
		}
		all = append(all, users...)
	}
	return all, nil
}

func roleOrAll(role models.UserRole) string {
	if role == "" {
		return "all"
	}
	return string(role)
}
