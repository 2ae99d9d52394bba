package workers

import (
	"context"
	"fmt"
	"time"

	"guidia_backend/internal/logger"
	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/internal/services"
)

// JobNotificationWorker periodically sweeps the job table and emits the
// lifecycle notifications: new postings to students, expiring and
// past-deadline warnings to the posting company. Every sweep is safe to
// repeat: flags and delivery keys absorb re-scans.
type JobNotificationWorker struct {
	jobRepo        repositories.JobRepository
	delivery       *services.Delivery
	interval       time.Duration
	expiringWindow time.Duration
}

func NewJobNotificationWorker(
	jobRepo repositories.JobRepository,
	delivery *services.Delivery,
	interval time.Duration,
	expiringWindow time.Duration,
) *JobNotificationWorker {
	return &JobNotificationWorker{
		jobRepo:        jobRepo,
		delivery:       delivery,
		interval:       interval,
		expiringWindow: expiringWindow,
	}
}

func (w *JobNotificationWorker) Start(ctx context.Context) {
	logger.Info("job notification worker started",
		"interval", w.interval.String(), "expiring_window", w.expiringWindow.String())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Sweep()
	for {
		select {
		case <-ctx.Done():
			logger.Info("job notification worker stopped")
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one full pass. Exported so the maintenance tooling and tests
// can trigger it without the ticker.
func (w *JobNotificationWorker) Sweep() {
	w.announceNewPostings()
	w.notifyExpiring()
	w.notifyPastDeadline()
}

func (w *JobNotificationWorker) announceNewPostings() {
	// Look back two intervals so a slow sweep cannot skip a posting; the
	// delivery keys make the overlap harmless.
	since := time.Now().Add(-2 * w.interval)
	jobs, err := w.jobRepo.FindRecentActiveJobs(since)
	if err != nil {
		logger.WorkerLog("job_notification", "find recent postings", err)
		return
	}

	for i := range jobs {
		created, err := w.delivery.NotifyJobPosted(&jobs[i])
		if err != nil {
			logger.WorkerLog("job_notification", "announce posting "+jobs[i].ID, err)
			continue
		}
		if created > 0 {
			logger.Info("job posting announced", "job_id", jobs[i].ID, "notified", created)
		}
	}
}

func (w *JobNotificationWorker) notifyExpiring() {
	until := time.Now().Add(w.expiringWindow)
	jobs, err := w.jobRepo.FindExpiringJobs(until)
	if err != nil {
		logger.WorkerLog("job_notification", "find expiring jobs", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]
		_, err := w.delivery.Send(services.Event{
			UserID:    job.CompanyID,
			Type:      repositories.NotificationTypeJobExpiring,
			Title:     "Job posting expires soon",
			Message:   fmt.Sprintf("Your posting %q reaches its deadline on %s", job.Title, job.Deadline.Format("2006-01-02")),
			Priority:  models.PriorityHigh,
			EntityRef: job.ID,
			JobID:     job.ID,
			JobFlag:   services.JobFlagExpiring,
			Metadata:  map[string]interface{}{"job_id": job.ID},
		})
		if err != nil {
			logger.WorkerLog("job_notification", "notify expiring "+job.ID, err)
		}
	}
}

func (w *JobNotificationWorker) notifyPastDeadline() {
	jobs, err := w.jobRepo.FindPastDeadlineJobs(time.Now())
	if err != nil {
		logger.WorkerLog("job_notification", "find past-deadline jobs", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]
		_, err := w.delivery.Send(services.Event{
			UserID:    job.CompanyID,
			Type:      repositories.NotificationTypeJobDeadline,
			Title:     "Job posting deadline passed",
			Message:   fmt.Sprintf("Your posting %q has passed its application deadline", job.Title),
			Priority:  models.PriorityMedium,
			EntityRef: job.ID,
			JobID:     job.ID,
			JobFlag:   services.JobFlagDeadline,
			Metadata:  map[string]interface{}{"job_id": job.ID},
		})
		if err != nil {
			logger.WorkerLog("job_notification", "notify deadline "+job.ID, err)
		}
	}
}
