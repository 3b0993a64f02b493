package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/app"
	"github.com/tunewell/studio-server/internal/config"
	"github.com/tunewell/studio-server/internal/controller"
	"github.com/tunewell/studio-server/internal/queue"
	"github.com/tunewell/studio-server/internal/repository"
	"github.com/tunewell/studio-server/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, "migrations")
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	queueClient, err := queue.NewClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to connect to queue broker", zap.Error(err))
	}
	defer queueClient.Close()

	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	teacherRepo := repository.NewTeacherRepository(pool)
	studentRepo := repository.NewStudentRepository(pool)

	bookingSvc := service.NewBookingService(slotRepo, bookingRepo, queueClient, logger)
	rosterSvc := service.NewRosterService(teacherRepo, studentRepo, logger)

	scheduler := app.NewScheduler(slotRepo, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := controller.NewServer(cfg.HTTPAddr, bookingSvc, rosterSvc, logger)

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	logger.Info("Studio server started",
		zap.String("environment", cfg.Environment),
		zap.String("addr", cfg.HTTPAddr),
	)

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
