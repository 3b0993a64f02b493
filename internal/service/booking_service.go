package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/model"
	"github.com/tunewell/studio-server/internal/repository"
)

// SlotStore is the slot persistence surface the booking service needs.
// Implemented by repository.SlotRepository; tests substitute in-memory fakes.
type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id int64) (*model.Slot, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Slot, error)
	Delete(ctx context.Context, id int64) error
	SetAvailability(ctx context.Context, id int64, available bool) error
}

// BookingStore is the booking persistence surface the booking service needs.
type BookingStore interface {
	CreateWithClaim(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id int64) (*model.Booking, error)
	ListByDate(ctx context.Context, date time.Time) ([]*model.Booking, error)
	ListAll(ctx context.Context) ([]*model.Booking, error)
	Delete(ctx context.Context, id int64) error
}

// Enqueuer dispatches processBooking jobs to the queue.
type Enqueuer interface {
	EnqueueProcessBooking(ctx context.Context, bookingID int64) error
}

type BookingService struct {
	slots    SlotStore
	bookings BookingStore
	queue    Enqueuer
	logger   *zap.Logger
}

func NewBookingService(slots SlotStore, bookings BookingStore, queue Enqueuer, logger *zap.Logger) *BookingService {
	return &BookingService{
		slots:    slots,
		bookings: bookings,
		queue:    queue,
		logger:   logger,
	}
}

// ListSlots returns all slots for a date, ordered by time.
func (s *BookingService) ListSlots(ctx context.Context, date time.Time) ([]*model.Slot, error) {
	return s.slots.ListByDate(ctx, date)
}

// CreateSlot inserts an available slot and returns it.
func (s *BookingService) CreateSlot(ctx context.Context, teacherID *int64, date time.Time, timeOfDay string, durationMinutes int) (*model.Slot, error) {
	if durationMinutes <= 0 {
		durationMinutes = 30
	}

	slot := &model.Slot{
		TeacherID:       teacherID,
		SlotDate:        date,
		SlotTime:        timeOfDay,
		DurationMinutes: durationMinutes,
		IsAvailable:     true,
	}
	if err := s.slots.Create(ctx, slot); err != nil {
		return nil, err
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.String("date", slot.DateKey()),
		zap.String("time", slot.SlotTime),
	)

	return slot, nil
}

// DeleteSlot removes a slot unconditionally.
func (s *BookingService) DeleteSlot(ctx context.Context, id int64) error {
	return s.slots.Delete(ctx, id)
}

// ListBookings returns joined booking rows; all of them newest slot date
// first when date is nil.
func (s *BookingService) ListBookings(ctx context.Context, date *time.Time) ([]*model.Booking, error) {
	if date != nil {
		return s.bookings.ListByDate(ctx, *date)
	}
	return s.bookings.ListAll(ctx)
}

// CreateBookingInput carries either a registered student id or guest
// contact details, never both.
type CreateBookingInput struct {
	StudentID  *int64
	GuestName  *string
	GuestEmail *string
	GuestPhone *string
	SlotID     int64
	LessonType *string
	Recurrence *string
}

// CreateBooking claims the slot and inserts the booking in one
// transaction, then enqueues the asynchronous processing job. A taken
// slot surfaces as repository.ErrSlotTaken; a missing one as
// repository.ErrSlotNotFound. Enqueue failures do not fail the booking:
// the reservation already exists, so they are only logged.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*model.Booking, error) {
	booking := &model.Booking{
		StudentID:  input.StudentID,
		GuestName:  input.GuestName,
		GuestEmail: input.GuestEmail,
		GuestPhone: input.GuestPhone,
		SlotID:     input.SlotID,
		LessonType: input.LessonType,
		Recurrence: input.Recurrence,
	}

	if err := s.bookings.CreateWithClaim(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	s.logger.Info("Booking created",
		zap.Int64("booking_id", booking.ID),
		zap.Int64("slot_id", booking.SlotID),
		zap.Bool("recurring", booking.IsRecurring()),
	)

	if err := s.queue.EnqueueProcessBooking(ctx, booking.ID); err != nil {
		s.logger.Error("Failed to enqueue processBooking job",
			zap.Int64("booking_id", booking.ID),
			zap.Error(err),
		)
	}

	return booking, nil
}

// CancelBooking restores the slot's availability, then deletes the
// booking row.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) error {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get booking: %w", err)
	}
	if booking == nil {
		return repository.ErrBookingNotFound
	}

	if err := s.slots.SetAvailability(ctx, booking.SlotID, true); err != nil {
		// The slot may have been deleted by an admin; the booking should
		// still go away.
		s.logger.Warn("Failed to restore slot availability",
			zap.Int64("slot_id", booking.SlotID),
			zap.Error(err),
		)
	}

	if err := s.bookings.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Booking cancelled",
		zap.Int64("booking_id", id),
		zap.Int64("slot_id", booking.SlotID),
	)

	return nil
}
