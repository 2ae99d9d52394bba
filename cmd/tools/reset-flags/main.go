// reset-flags is the maintenance tool for job notification state. It clears
// the notified flags and the associated delivery keys so the next sweep may
// notify again. Every run is written to the security audit log; a run that
// cannot be audited is aborted.
package main

import (
	"flag"
	"fmt"
	"os"

	"guidia_backend/internal/config"
	"guidia_backend/internal/logger"
	"guidia_backend/internal/models"
	"guidia_backend/internal/repositories"
	"guidia_backend/internal/services"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	jobID := flag.String("job", "", "reset flags for a single job ID")
	status := flag.String("status", "", "reset flags for every job with this status")
	actor := flag.String("actor", "", "actor ID recorded in the audit log")
	flag.Parse()

	if (*jobID == "") == (*status == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -job or -status is required")
		os.Exit(2)
	}
	if *actor == "" {
		fmt.Fprintln(os.Stderr, "-actor is required")
		os.Exit(2)
	}

	config.LoadConfig()
	cfg := config.GetConfig()
	logger.Init(cfg.Server.Env)

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		logger.Fatal("connect database", "error", err.Error())
	}

	jobRepo := repositories.NewJobRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	auditService := services.NewAuditService(repositories.NewAuditRepository(db))

	if *jobID != "" {
		resetOne(jobRepo, notificationRepo, auditService, *actor, *jobID)
		return
	}
	resetByStatus(jobRepo, notificationRepo, auditService, *actor, models.JobStatus(*status))
}

func resetOne(
	jobRepo repositories.JobRepository,
	notificationRepo repositories.NotificationRepository,
	audit services.AuditService,
	actor, jobID string,
) {
	detail := fmt.Sprintf("reset notification flags for job %s", jobID)
	if _, err := audit.Record(actor, models.AuditEventFlagReset, detail); err != nil {
		logger.Fatal("audit write failed, aborting", "error", err.Error())
	}

	if _, err := jobRepo.ResetNotificationFlags(jobID); err != nil {
		logger.Fatal("reset flags failed", "job_id", jobID, "error", err.Error())
	}
	keys, err := notificationRepo.ClearDeliveryKeys(jobID)
	if err != nil {
		logger.Fatal("clear delivery keys failed", "job_id", jobID, "error", err.Error())
	}

	logger.Info("flags reset", "job_id", jobID, "delivery_keys_cleared", keys)
}

func resetByStatus(
	jobRepo repositories.JobRepository,
	notificationRepo repositories.NotificationRepository,
	audit services.AuditService,
	actor string,
	status models.JobStatus,
) {
	detail := fmt.Sprintf("reset notification flags for jobs with status %s", status)
	if _, err := audit.Record(actor, models.AuditEventFlagReset, detail); err != nil {
		logger.Fatal("audit write failed, aborting", "error", err.Error())
	}

	jobs, err := jobRepo.FindByStatus(status)
	if err != nil {
		logger.Fatal("list jobs failed", "status", string(status), "error", err.Error())
	}

	count, err := jobRepo.ResetNotificationFlagsByStatus(status)
	if err != nil {
		logger.Fatal("reset flags failed", "status", string(status), "error", err.Error())
	}

	var keys int64
	for _, job := range jobs {
		n, err := notificationRepo.ClearDeliveryKeys(job.ID)
		if err != nil {
			logger.Fatal("clear delivery keys failed", "job_id", job.ID, "error", err.Error())
		}
		keys += n
	}

	logger.Info("flags reset", "status", string(status), "jobs", count, "delivery_keys_cleared", keys)
}
