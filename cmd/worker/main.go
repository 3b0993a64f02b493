package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/alert"
	"github.com/tunewell/studio-server/internal/app"
	"github.com/tunewell/studio-server/internal/calendar"
	"github.com/tunewell/studio-server/internal/config"
	"github.com/tunewell/studio-server/internal/mailer"
	"github.com/tunewell/studio-server/internal/queue"
	"github.com/tunewell/studio-server/internal/repository"
	"github.com/tunewell/studio-server/internal/secretfield"
	"github.com/tunewell/studio-server/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	slotRepo := repository.NewSlotRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

	cal := newCalendarClient(ctx, cfg, logger)
	mail := mailer.New(cfg, logger)

	var codec *secretfield.Codec
	if cfg.FieldEncryptionKey != "" {
		codec, err = secretfield.NewCodec(cfg.FieldEncryptionKey)
		if err != nil {
			logger.Fatal("Invalid FIELD_ENCRYPTION_KEY", zap.Error(err))
		}
	}

	loc, err := time.LoadLocation(cfg.GoogleCalendarTimezone)
	if err != nil {
		logger.Warn("Unknown timezone, falling back to UTC",
			zap.String("timezone", cfg.GoogleCalendarTimezone))
		loc = time.UTC
	}

	w := worker.NewWorker(bookingRepo, slotRepo, cal, mail, codec, loc, logger)

	srv, err := queue.NewServer(cfg, logger, newErrorHandler(cfg, logger))
	if err != nil {
		logger.Fatal("Failed to create queue server", zap.Error(err))
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TypeProcessBooking, w.HandleProcessBooking)

	logger.Info("Booking worker started", zap.String("environment", cfg.Environment))

	if err := srv.Run(mux); err != nil {
		logger.Fatal("Queue server stopped", zap.Error(err))
	}
}

// newCalendarClient builds the Google Calendar client, or nil when no
// credentials are configured.
func newCalendarClient(ctx context.Context, cfg *config.Config, logger *zap.Logger) worker.Calendar {
	raw := cfg.GoogleCredsBase64
	if raw == "" {
		raw = cfg.GoogleServiceAccountJSON
	}
	if raw == "" {
		logger.Warn("No Google credentials configured, calendar sync disabled")
		return nil
	}

	creds, err := calendar.ParseServiceAccount(raw)
	if err != nil {
		logger.Fatal("Invalid Google credentials", zap.Error(err))
	}

	client, err := calendar.NewClient(ctx, creds, cfg.GoogleCalendarID, cfg.GoogleCalendarTimezone, logger)
	if err != nil {
		logger.Fatal("Failed to create calendar client", zap.Error(err))
	}
	return client
}

// newErrorHandler alerts the admin chat when a job exhausts its retries.
// Without a configured bot, terminal failures are only logged.
func newErrorHandler(cfg *config.Config, logger *zap.Logger) asynq.ErrorHandler {
	var notifier alert.Notifier
	if cfg.TelegramToken != "" && cfg.AdminChatID != 0 {
		tg, err := alert.NewTelegram(cfg.TelegramToken, cfg.AdminChatID)
		if err != nil {
			logger.Fatal("Failed to create telegram notifier", zap.Error(err))
		}
		notifier = tg
	}

	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		if !queue.IsTerminalFailure(ctx) {
			return
		}

		logger.Error("Job failed terminally",
			zap.String("type", task.Type()),
			zap.ByteString("payload", task.Payload()),
			zap.Error(err),
		)

		if notifier == nil {
			return
		}
		text := fmt.Sprintf("Job %s failed after all retries: %v", task.Type(), err)
		if notifyErr := notifier.Notify(ctx, text); notifyErr != nil {
			logger.Error("Failed to send admin alert", zap.Error(notifyErr))
		}
	})
}
