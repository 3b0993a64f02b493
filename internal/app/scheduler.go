package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SlotPruner removes unbooked slots dated before the cutoff.
type SlotPruner interface {
	DeleteAvailableBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Scheduler runs periodic maintenance in the background.
type Scheduler struct {
	pruner   SlotPruner
	logger   *zap.Logger
	stopChan chan struct{}
}

func NewScheduler(pruner SlotPruner, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		pruner:   pruner,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the maintenance loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler")
	go s.runSlotPruneTask(ctx)
}

// Stop halts the maintenance loop.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runSlotPruneTask prunes stale slots once at startup and then daily.
func (s *Scheduler) runSlotPruneTask(ctx context.Context) {
	s.pruneSlots(ctx)

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.pruneSlots(ctx)
		case <-s.stopChan:
			s.logger.Info("Slot prune task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Slot prune task cancelled")
			return
		}
	}
}

// pruneSlots deletes yesterday's and older unbooked slots. Booked slots
// stay for lesson history.
func (s *Scheduler) pruneSlots(ctx context.Context) {
	today := time.Now().Truncate(24 * time.Hour)

	removed, err := s.pruner.DeleteAvailableBefore(ctx, today)
	if err != nil {
		s.logger.Error("Failed to prune stale slots", zap.Error(err))
		return
	}

	if removed > 0 {
		s.logger.Info("Pruned stale slots", zap.Int64("removed", removed))
	}
}
