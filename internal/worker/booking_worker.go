// Package worker runs the asynchronous side of a booking: confirmation
// email, calendar sync, and recurrence expansion. Every step after the
// initial load is best effort; only a missing booking fails the job and
// hands it back to the queue for retry.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/calendar"
	"github.com/tunewell/studio-server/internal/mailer"
	"github.com/tunewell/studio-server/internal/model"
	"github.com/tunewell/studio-server/internal/queue"
	"github.com/tunewell/studio-server/internal/recurrence"
	"github.com/tunewell/studio-server/internal/secretfield"
)

// BookingStore is the booking persistence surface the worker needs.
// Implemented by repository.BookingRepository; tests substitute fakes.
type BookingStore interface {
	GetDetailed(ctx context.Context, id int64) (*model.Booking, error)
	CreateWithClaim(ctx context.Context, booking *model.Booking) error
	FindSiblingCalendarEvent(ctx context.Context, slotID, excludeBookingID int64) (eventID, recurrenceID *string, err error)
	ExistsForSlotAndRecurrence(ctx context.Context, slotID int64, recurrenceID string) (bool, error)
	SetCalendarRefs(ctx context.Context, id int64, eventID, recurrenceID *string) error
	SetCalendarInstanceID(ctx context.Context, id int64, instanceID string) error
}

// SlotStore is the slot persistence surface the worker needs.
type SlotStore interface {
	FindOrCreate(ctx context.Context, teacherID *int64, date time.Time, timeOfDay string, durationMinutes int) (*model.Slot, error)
}

// Calendar is the slice of the calendar client the worker consumes.
type Calendar interface {
	CreateEvent(ctx context.Context, input calendar.EventInput) (string, error)
	ListInstances(ctx context.Context, eventID string, from, to time.Time) ([]calendar.Instance, error)
}

type Worker struct {
	bookings BookingStore
	slots    SlotStore
	cal      Calendar // nil when calendar sync is off
	mail     mailer.Mailer
	codec    *secretfield.Codec // nil when field encryption is off
	loc      *time.Location
	logger   *zap.Logger
}

func NewWorker(
	bookings BookingStore,
	slots SlotStore,
	cal Calendar,
	mail mailer.Mailer,
	codec *secretfield.Codec,
	loc *time.Location,
	logger *zap.Logger,
) *Worker {
	if loc == nil {
		loc = time.UTC
	}
	return &Worker{
		bookings: bookings,
		slots:    slots,
		cal:      cal,
		mail:     mail,
		codec:    codec,
		loc:      loc,
		logger:   logger,
	}
}

// HandleProcessBooking is the asynq handler for processBooking tasks.
func (w *Worker) HandleProcessBooking(ctx context.Context, task *asynq.Task) error {
	var payload queue.ProcessBookingPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w", queue.TypeProcessBooking, err)
	}
	return w.ProcessBooking(ctx, payload.BookingID)
}

// ProcessBooking runs the sequential booking workflow. The returned error
// is non-nil only when the booking could not be loaded; everything else
// is logged and skipped so one failing step never blocks the rest.
func (w *Worker) ProcessBooking(ctx context.Context, bookingID int64) error {
	booking, err := w.bookings.GetDetailed(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if booking == nil || booking.Slot == nil {
		return fmt.Errorf("booking %d no longer exists", bookingID)
	}
	slot := booking.Slot

	log := w.logger.With(zap.Int64("booking_id", bookingID), zap.Int64("slot_id", slot.ID))

	guestName := w.openField(booking.GuestName, "guest_name", log)
	guestEmail := w.openField(booking.GuestEmail, "guest_email", log)

	w.sendConfirmation(ctx, booking, slot, guestName, guestEmail, log)

	start, err := slot.Start(w.loc)
	if err != nil {
		log.Error("Slot has unusable date/time, skipping calendar sync", zap.Error(err))
		return nil
	}
	end := start.Add(time.Duration(slot.DurationMinutes) * time.Minute)

	var rule *recurrence.Rule
	if booking.IsRecurring() {
		r := recurrence.Parse(*booking.Recurrence)
		rule = &r
	}

	eventID, recurrenceID := w.reserveCalendarEvent(ctx, booking, slot, start, end, rule, guestName, guestEmail, log)

	if rule != nil && recurrenceID == nil {
		if booking.RecurrenceID != nil {
			recurrenceID = booking.RecurrenceID
		} else {
			// No calendar event to anchor the series; mint an id anyway
			// so expansion stays idempotent across retries.
			id := uuid.NewString()
			recurrenceID = &id
		}
	}

	if eventID != nil || recurrenceID != nil {
		if err := w.bookings.SetCalendarRefs(ctx, booking.ID, eventID, recurrenceID); err != nil {
			log.Error("Failed to persist calendar refs", zap.Error(err))
		}
	}

	if rule != nil && eventID != nil && booking.CalendarInstanceID == nil {
		w.mapFirstInstance(ctx, booking, *eventID, start, log)
	}

	if rule != nil && recurrenceID != nil {
		w.expandRecurrence(ctx, booking, slot, *rule, *recurrenceID, eventID, start, log)
	}

	return nil
}

// openField decrypts a stored guest field, falling back to the stored
// value when there is no codec and to nil when decryption fails.
func (w *Worker) openField(value *string, name string, log *zap.Logger) *string {
	if value == nil {
		return nil
	}
	if w.codec == nil {
		if secretfield.IsEnvelope(*value) {
			log.Warn("Encrypted field but no decryption key configured", zap.String("field", name))
		}
		return value
	}

	plain, err := w.codec.Open(*value)
	if err != nil {
		log.Warn("Failed to decrypt guest field", zap.String("field", name), zap.Error(err))
		return nil
	}
	return &plain
}

func (w *Worker) sendConfirmation(ctx context.Context, booking *model.Booking, slot *model.Slot, guestName, guestEmail *string, log *zap.Logger) {
	var to, toName string
	if booking.Student != nil {
		to, toName = booking.Student.Email, booking.Student.Name
	} else if guestEmail != nil {
		to = *guestEmail
		if guestName != nil {
			toName = *guestName
		}
	}
	if to == "" {
		log.Warn("Booking has no email recipient, skipping confirmation")
		return
	}

	lesson := "lesson"
	if booking.LessonType != nil {
		lesson = *booking.LessonType + " lesson"
	}
	msg := &mailer.Message{
		To:      to,
		ToName:  toName,
		Subject: "Your " + lesson + " is booked",
		Text: fmt.Sprintf("Your %s on %s at %s is confirmed. See you then!",
			lesson, slot.DateKey(), slot.SlotTime),
	}

	if err := w.mail.Send(ctx, msg); err != nil {
		log.Error("Failed to send confirmation email", zap.Error(err))
	}
}

// reserveCalendarEvent reuses a sibling booking's event when one exists
// (covers queue retries), otherwise creates a new one.
func (w *Worker) reserveCalendarEvent(
	ctx context.Context,
	booking *model.Booking,
	slot *model.Slot,
	start, end time.Time,
	rule *recurrence.Rule,
	guestName, guestEmail *string,
	log *zap.Logger,
) (eventID, recurrenceID *string) {
	if booking.CalendarEventID != nil {
		return booking.CalendarEventID, booking.RecurrenceID
	}

	eventID, recurrenceID, err := w.bookings.FindSiblingCalendarEvent(ctx, slot.ID, booking.ID)
	if err != nil {
		log.Error("Failed to look up sibling calendar event", zap.Error(err))
	}
	if eventID != nil {
		log.Info("Reusing existing calendar event", zap.String("event_id", *eventID))
		return eventID, recurrenceID
	}

	if w.cal == nil {
		log.Debug("Calendar sync disabled, skipping event creation")
		return nil, nil
	}

	input := calendar.EventInput{
		Summary:     eventSummary(booking, guestName),
		Description: "Booked through the studio admin console",
		Start:       start,
		End:         end,
	}
	if booking.Student != nil {
		input.Attendees = []string{booking.Student.Email}
	} else if guestEmail != nil {
		input.Attendees = []string{*guestEmail}
	}
	if rule != nil {
		input.Recurrence = []string{rule.RRule()}
	}

	created, err := w.cal.CreateEvent(ctx, input)
	if err != nil {
		log.Error("Failed to create calendar event", zap.Error(err))
		return nil, nil
	}

	log.Info("Calendar event created", zap.String("event_id", created))
	if rule != nil {
		rid := uuid.NewString()
		return &created, &rid
	}
	return &created, nil
}

// mapFirstInstance stores the per-instance id of the occurrence matching
// the original slot time.
func (w *Worker) mapFirstInstance(ctx context.Context, booking *model.Booking, eventID string, start time.Time, log *zap.Logger) {
	if w.cal == nil {
		return
	}
	instances, err := w.cal.ListInstances(ctx, eventID, start.Add(-time.Second), start.Add(time.Second))
	if err != nil {
		log.Error("Failed to list calendar instances", zap.Error(err))
		return
	}

	match := calendar.MatchInstance(instances, start)
	if match == nil {
		log.Warn("No calendar instance matches the slot start", zap.String("event_id", eventID))
		return
	}

	if err := w.bookings.SetCalendarInstanceID(ctx, booking.ID, match.ID); err != nil {
		log.Error("Failed to persist calendar instance id", zap.Error(err))
	}
}

// expandRecurrence synthesizes slot+booking rows for every weekly
// occurrence after the first. Each occurrence is handled independently: a
// failure is logged and the loop moves on.
func (w *Worker) expandRecurrence(
	ctx context.Context,
	booking *model.Booking,
	slot *model.Slot,
	rule recurrence.Rule,
	recurrenceID string,
	eventID *string,
	start time.Time,
	log *zap.Logger,
) {
	times := rule.Times(start)
	if len(times) == 0 {
		return
	}
	created := 0

	for _, occurrence := range times[1:] {
		date := time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(), 0, 0, 0, 0, time.UTC)
		timeOfDay := occurrence.Format("15:04")

		target, err := w.slots.FindOrCreate(ctx, slot.TeacherID, date, timeOfDay, slot.DurationMinutes)
		if err != nil {
			log.Error("Failed to find or create slot for occurrence",
				zap.String("date", date.Format("2006-01-02")),
				zap.Error(err),
			)
			continue
		}

		exists, err := w.bookings.ExistsForSlotAndRecurrence(ctx, target.ID, recurrenceID)
		if err != nil {
			log.Error("Failed to check for existing sibling booking",
				zap.Int64("target_slot_id", target.ID),
				zap.Error(err),
			)
			continue
		}
		if exists {
			continue
		}

		sibling := &model.Booking{
			StudentID:       booking.StudentID,
			GuestName:       booking.GuestName,
			GuestEmail:      booking.GuestEmail,
			GuestPhone:      booking.GuestPhone,
			SlotID:          target.ID,
			LessonType:      booking.LessonType,
			CalendarEventID: eventID,
			RecurrenceID:    &recurrenceID,
		}
		if err := w.bookings.CreateWithClaim(ctx, sibling); err != nil {
			log.Error("Failed to create sibling booking",
				zap.Int64("target_slot_id", target.ID),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	log.Info("Recurrence expanded",
		zap.String("recurrence_id", recurrenceID),
		zap.Int("occurrences", len(times)),
		zap.Int("siblings_created", created),
	)
}

func eventSummary(booking *model.Booking, guestName *string) string {
	lesson := "Lesson"
	if booking.LessonType != nil {
		lesson = *booking.LessonType + " lesson"
	}
	switch {
	case booking.Student != nil:
		return lesson + " - " + booking.Student.Name
	case guestName != nil:
		return lesson + " - " + *guestName
	default:
		return lesson
	}
}
