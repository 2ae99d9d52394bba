package app

import (
	"context"
	"fmt"
	"time"

	"guidia_backend/database"
	"guidia_backend/internal/config"
	"guidia_backend/internal/email"
	"guidia_backend/internal/handlers"
	"guidia_backend/internal/logger"
	"guidia_backend/internal/repositories"
	repoChat "guidia_backend/internal/repositories/chat"
	"guidia_backend/internal/routes"
	"guidia_backend/internal/services"
	svcChat "guidia_backend/internal/services/chat"
	"guidia_backend/internal/validator"
	"guidia_backend/internal/workers"
	"guidia_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type App struct {
	Router *gin.Engine
	DB     *gorm.DB

	Delivery *services.Delivery
	Manager  *ws.Manager
	Worker   *workers.JobNotificationWorker
}

// New builds the application graph. The websocket manager is bound to the
// delivery facade last: until then every dispatch is store-only, which is
// the correct cold-start behavior.
func New(cfg *config.Config) (*App, error) {
	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return build(cfg, db)
}

func build(cfg *config.Config, db *gorm.DB) (*App, error) {
	v := validator.New()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	jobRepo := repositories.NewJobRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	conversationRepo := repoChat.NewConversationRepository(db)
	messageRepo := repoChat.NewMessageRepository(db)

	// Services
	auditService := services.NewAuditService(auditRepo)
	dedupWindow := time.Duration(cfg.Notifications.DedupWindowMinutes) * time.Minute
	dispatcher := services.NewDispatcher(notificationRepo, jobRepo, userRepo, dedupWindow)

	var emailProvider email.Provider
	if cfg.Email.Enabled {
		provider, err := email.NewGomailProvider(email.Config{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
			From:     cfg.Email.FromEmail,
			FromName: cfg.Email.FromName,
		})
		if err != nil {
			return nil, fmt.Errorf("configure email provider: %w", err)
		}
		emailProvider = provider
	}

	delivery := services.NewDelivery(dispatcher, userRepo, auditService, emailProvider)
	notificationService := services.NewNotificationService(notificationRepo)
	chatService := svcChat.NewChatService(conversationRepo, messageRepo, userRepo, delivery)

	// Live push
	manager := ws.NewManager()
	delivery.BindPusher(manager)
	wsHandler := ws.NewHandler(manager, chatService)

	// HTTP
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	appHandlers := handlers.NewAppHandlers(v, notificationService, delivery, chatService, auditService)
	routes.SetupRoutes(router, db, appHandlers, wsHandler, auditService)

	worker := workers.NewJobNotificationWorker(
		jobRepo,
		delivery,
		time.Duration(cfg.Notifications.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.Notifications.ExpiringWindowHours)*time.Hour,
	)

	return &App{
		Router:   router,
		DB:       db,
		Delivery: delivery,
		Manager:  manager,
		Worker:   worker,
	}, nil
}

// Run starts the websocket manager, the sweep worker and the HTTP listener.
func (a *App) Run(ctx context.Context, addr string) error {
	go a.Manager.Run()
	go a.Worker.Start(ctx)

	logger.Info("server listening", "addr", addr)
	return a.Router.Run(addr)
}
