package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"guidia_backend/internal/app"
	"guidia_backend/internal/config"
	"guidia_backend/internal/logger"
)

func main() {
	config.LoadConfig()
	cfg := config.GetConfig()

	logger.Init(cfg.Server.Env)

	application, err := app.New(cfg)
	if err != nil {
		logger.Fatal("failed to start", "error", err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := application.Run(ctx, addr); err != nil {
		logger.Fatal("server exited", "error", err.Error())
	}
}
