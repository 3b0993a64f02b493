package worker

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/calendar"
	"github.com/tunewell/studio-server/internal/mailer"
	"github.com/tunewell/studio-server/internal/model"
	"github.com/tunewell/studio-server/internal/secretfield"
	"github.com/tunewell/studio-server/internal/storage/inmem"
)

type fakeCalendar struct {
	createCalls int
	lastInput   calendar.EventInput
	failCreate  bool
	instances   []calendar.Instance
}

func (f *fakeCalendar) CreateEvent(_ context.Context, input calendar.EventInput) (string, error) {
	f.createCalls++
	f.lastInput = input
	if f.failCreate {
		return "", errors.New("calendar unavailable")
	}
	return "evt-1", nil
}

func (f *fakeCalendar) ListInstances(_ context.Context, _ string, _, _ time.Time) ([]calendar.Instance, error) {
	return f.instances, nil
}

type fakeMailer struct {
	sent []*mailer.Message
	fail bool
}

func (f *fakeMailer) Send(_ context.Context, msg *mailer.Message) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func strPtr(s string) *string { return &s }

func seedSlot(db *inmem.DB, date, timeOfDay string) *model.Slot {
	d, _ := time.Parse("2006-01-02", date)
	return db.SeedSlot(&model.Slot{
		SlotDate:        d,
		SlotTime:        timeOfDay,
		DurationMinutes: 30,
		IsAvailable:     true,
	})
}

func seriesBookings(db *inmem.DB, recurrenceID string) []*model.Booking {
	var out []*model.Booking
	for _, b := range db.AllBookings() {
		if b.RecurrenceID != nil && *b.RecurrenceID == recurrenceID {
			out = append(out, b)
		}
	}
	return out
}

func newTestWorker(db *inmem.DB, cal *fakeCalendar, mail *fakeMailer) *Worker {
	return NewWorker(inmem.NewBookingStore(db), inmem.NewSlotStore(db), cal, mail, nil, time.UTC, zap.NewNop())
}

func TestProcessBookingMissingIsFatal(t *testing.T) {
	db := inmem.Open()
	w := newTestWorker(db, &fakeCalendar{}, &fakeMailer{})

	err := w.ProcessBooking(context.Background(), 999)
	assert.Error(t, err)
}

func TestProcessBookingOneOff(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestName:  strPtr("Alice"),
		GuestEmail: strPtr("alice@example.com"),
		LessonType: strPtr("Guitar"),
	})

	cal := &fakeCalendar{}
	mail := &fakeMailer{}
	w := newTestWorker(db, cal, mail)

	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.com", mail.sent[0].To)

	assert.Equal(t, 1, cal.createCalls)
	assert.Empty(t, cal.lastInput.Recurrence)
	require.NotNil(t, booking.CalendarEventID)
	assert.Equal(t, "evt-1", *booking.CalendarEventID)
	assert.Nil(t, booking.RecurrenceID)

	// No expansion for one-off lessons.
	assert.Len(t, db.AllBookings(), 1)
}

func TestProcessBookingCountFour(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: strPtr("alice@example.com"),
		Recurrence: strPtr("RRULE:FREQ=WEEKLY;COUNT=4"),
	})

	cal := &fakeCalendar{}
	w := newTestWorker(db, cal, &fakeMailer{})

	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	require.NotNil(t, booking.RecurrenceID)
	series := seriesBookings(db, *booking.RecurrenceID)
	assert.Len(t, series, 4)

	for _, b := range series {
		require.NotNil(t, b.CalendarEventID)
		assert.Equal(t, "evt-1", *b.CalendarEventID)
		assert.False(t, db.Slot(b.SlotID).IsAvailable)
	}

	// One event for the whole series, with the rule attached.
	assert.Equal(t, 1, cal.createCalls)
	require.Len(t, cal.lastInput.Recurrence, 1)
	assert.Equal(t, "RRULE:FREQ=WEEKLY;COUNT=4", cal.lastInput.Recurrence[0])

	// Siblings land exactly one week apart.
	dates := map[string]bool{}
	for _, b := range series {
		dates[db.Slot(b.SlotID).DateKey()] = true
	}
	for _, want := range []string{"2024-06-03", "2024-06-10", "2024-06-17", "2024-06-24"} {
		assert.True(t, dates[want], "missing occurrence on %s", want)
	}
}

func TestProcessBookingIdempotent(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: strPtr("alice@example.com"),
		Recurrence: strPtr("RRULE:FREQ=WEEKLY;COUNT=4"),
	})

	w := newTestWorker(db, &fakeCalendar{}, &fakeMailer{})

	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))
	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	require.NotNil(t, booking.RecurrenceID)
	assert.Len(t, seriesBookings(db, *booking.RecurrenceID), 4)
	assert.Len(t, db.AllBookings(), 4)
}

func TestProcessBookingUntilInclusive(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: strPtr("alice@example.com"),
		Recurrence: strPtr("FREQ=WEEKLY;UNTIL=20240617T000000Z"),
	})

	w := newTestWorker(db, &fakeCalendar{}, &fakeMailer{})
	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	require.NotNil(t, booking.RecurrenceID)
	series := seriesBookings(db, *booking.RecurrenceID)
	assert.Len(t, series, 3)

	for _, b := range series {
		assert.LessOrEqual(t, db.Slot(b.SlotID).DateKey(), "2024-06-17")
	}
}

func TestEmailFailureIsNonFatal(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: strPtr("alice@example.com"),
	})

	cal := &fakeCalendar{}
	w := newTestWorker(db, cal, &fakeMailer{fail: true})

	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))
	assert.Equal(t, 1, cal.createCalls)
}

func TestCalendarFailureStillExpands(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: strPtr("alice@example.com"),
		Recurrence: strPtr("RRULE:FREQ=WEEKLY;COUNT=3"),
	})

	w := newTestWorker(db, &fakeCalendar{failCreate: true}, &fakeMailer{})
	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	// The series exists without a calendar event; a minted recurrence id
	// keeps retries idempotent.
	require.NotNil(t, booking.RecurrenceID)
	assert.Len(t, seriesBookings(db, *booking.RecurrenceID), 3)
	assert.Nil(t, booking.CalendarEventID)
}

func TestReusesSiblingCalendarEvent(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	db.SeedBooking(&model.Booking{
		SlotID:          slot.ID,
		GuestEmail:      strPtr("earlier@example.com"),
		CalendarEventID: strPtr("evt-existing"),
	})
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: strPtr("alice@example.com"),
	})

	cal := &fakeCalendar{}
	w := newTestWorker(db, cal, &fakeMailer{})

	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	assert.Equal(t, 0, cal.createCalls)
	require.NotNil(t, booking.CalendarEventID)
	assert.Equal(t, "evt-existing", *booking.CalendarEventID)
}

func TestMapsFirstInstance(t *testing.T) {
	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: strPtr("alice@example.com"),
		Recurrence: strPtr("RRULE:FREQ=WEEKLY;COUNT=2"),
	})

	cal := &fakeCalendar{instances: []calendar.Instance{
		{ID: "evt-1_20240603T090000Z", Start: "2024-06-03T09:00:00Z"},
	}}
	w := newTestWorker(db, cal, &fakeMailer{})

	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	require.NotNil(t, booking.CalendarInstanceID)
	assert.Equal(t, "evt-1_20240603T090000Z", *booking.CalendarInstanceID)
}

func TestDecryptsGuestFields(t *testing.T) {
	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	codec, err := secretfield.NewCodec(key)
	require.NoError(t, err)

	sealedEmail, err := codec.Seal("alice@example.com")
	require.NoError(t, err)

	db := inmem.Open()
	slot := seedSlot(db, "2024-06-03", "09:00")
	booking := db.SeedBooking(&model.Booking{
		SlotID:     slot.ID,
		GuestEmail: &sealedEmail,
	})

	mail := &fakeMailer{}
	w := NewWorker(inmem.NewBookingStore(db), inmem.NewSlotStore(db), &fakeCalendar{}, mail, codec, time.UTC, zap.NewNop())

	require.NoError(t, w.ProcessBooking(context.Background(), booking.ID))

	require.Len(t, mail.sent, 1)
	assert.Equal(t, "alice@example.com", mail.sent[0].To)
}
