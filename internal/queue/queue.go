// Package queue is the durable processBooking dispatch layer over Redis.
// Jobs are retried 5 times with exponential backoff starting at 5s;
// completed tasks are retained for a week and terminally failed ones land
// in the archive for inspection.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/config"
)

const TypeProcessBooking = "processBooking"

const (
	maxRetry          = 5
	initialRetryDelay = 5 * time.Second
	retention         = 7 * 24 * time.Hour
)

// ProcessBookingPayload is the job body: just the booking to process.
type ProcessBookingPayload struct {
	BookingID int64 `json:"bookingId"`
}

// RedisConnOpt builds the broker connection from config. REDIS_URL wins
// when present.
func RedisConnOpt(cfg *config.Config) (asynq.RedisConnOpt, error) {
	if cfg.RedisURL != "" {
		opt, err := asynq.ParseRedisURI(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		return opt, nil
	}
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
	}, nil
}

// Client enqueues booking jobs.
type Client struct {
	inner  *asynq.Client
	logger *zap.Logger
}

func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	opt, err := RedisConnOpt(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		inner:  asynq.NewClient(opt),
		logger: logger,
	}, nil
}

// EnqueueProcessBooking dispatches a processBooking job for the booking id.
func (c *Client) EnqueueProcessBooking(ctx context.Context, bookingID int64) error {
	payload, err := json.Marshal(ProcessBookingPayload{BookingID: bookingID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeProcessBooking, payload)
	info, err := c.inner.EnqueueContext(ctx, task,
		asynq.MaxRetry(maxRetry),
		asynq.Retention(retention),
	)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TypeProcessBooking, err)
	}

	c.logger.Info("Job enqueued",
		zap.String("task_id", info.ID),
		zap.Int64("booking_id", bookingID),
	)
	return nil
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// NewServer builds the worker-side asynq server. errorHandler, when not
// nil, is invoked for every failed attempt (the handler decides whether
// the failure is terminal).
func NewServer(cfg *config.Config, logger *zap.Logger, errorHandler asynq.ErrorHandler) (*asynq.Server, error) {
	opt, err := RedisConnOpt(cfg)
	if err != nil {
		return nil, err
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency:    2,
		RetryDelayFunc: exponentialBackoff,
		Logger:         &zapAdapter{sugar: logger.Sugar()},
		ErrorHandler:   errorHandler,
	})
	return srv, nil
}

// IsTerminalFailure reports whether the attempt that just failed was the
// task's last one.
func IsTerminalFailure(ctx context.Context) bool {
	retried, _ := asynq.GetRetryCount(ctx)
	limit, _ := asynq.GetMaxRetry(ctx)
	return retried >= limit
}

// exponentialBackoff: 5s, 10s, 20s, 40s, 80s.
func exponentialBackoff(n int, _ error, _ *asynq.Task) time.Duration {
	d := initialRetryDelay
	for i := 1; i < n; i++ {
		d *= 2
	}
	return d
}

// zapAdapter satisfies asynq.Logger.
type zapAdapter struct {
	sugar *zap.SugaredLogger
}

func (l *zapAdapter) Debug(args ...interface{}) { l.sugar.Debug(args...) }
func (l *zapAdapter) Info(args ...interface{})  { l.sugar.Info(args...) }
func (l *zapAdapter) Warn(args ...interface{})  { l.sugar.Warn(args...) }
func (l *zapAdapter) Error(args ...interface{}) { l.sugar.Error(args...) }
func (l *zapAdapter) Fatal(args ...interface{}) { l.sugar.Fatal(args...) }
