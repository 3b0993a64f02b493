package handlers

import (
	"time"

	"github.com/tunewell/studio-server/internal/model"
)

type createSlotRequest struct {
	TeacherID       *int64 `json:"teacher_id"`
	SlotDate        string `json:"slot_date" validate:"required"`
	SlotTime        string `json:"slot_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes"`
}

type createBookingRequest struct {
	StudentID  *int64  `json:"student_id"`
	GuestName  *string `json:"guest_name"`
	GuestEmail *string `json:"guest_email"`
	GuestPhone *string `json:"guest_phone"`
	SlotID     int64   `json:"slot_id" validate:"required"`
	LessonType *string `json:"lesson_type"`
	Recurrence *string `json:"recurrence"`
}

type createTeacherRequest struct {
	Name       string `json:"name" validate:"required"`
	Instrument string `json:"instrument"`
	Email      string `json:"email" validate:"omitempty,email"`
}

type createStudentRequest struct {
	Name  string  `json:"name" validate:"required"`
	Email string  `json:"email" validate:"required,email"`
	Phone *string `json:"phone"`
}

type slotRow struct {
	ID              int64  `json:"id"`
	TeacherID       *int64 `json:"teacher_id"`
	SlotDate        string `json:"slot_date"`
	SlotTime        string `json:"slot_time"`
	DurationMinutes int    `json:"duration_minutes"`
	IsAvailable     bool   `json:"is_available"`
}

type bookingRow struct {
	ID              int64     `json:"id"`
	SlotID          int64     `json:"slot_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes int       `json:"duration_minutes"`
	IsAvailable     bool      `json:"is_available"`
	LessonType      *string   `json:"lesson_type"`
	StudentID       *int64    `json:"student_id"`
	StudentName     *string   `json:"student_name"`
	GuestName       *string   `json:"guest_name"`
	CalendarEventID *string   `json:"calendar_event_id"`
	RecurrenceID    *string   `json:"recurrence_id"`
	Recurrence      *string   `json:"recurrence"`
	CreatedAt       time.Time `json:"created_at"`
}

func toSlotRow(slot *model.Slot) slotRow {
	return slotRow{
		ID:              slot.ID,
		TeacherID:       slot.TeacherID,
		SlotDate:        slot.DateKey(),
		SlotTime:        slot.SlotTime,
		DurationMinutes: slot.DurationMinutes,
		IsAvailable:     slot.IsAvailable,
	}
}

func toBookingRow(booking *model.Booking) bookingRow {
	row := bookingRow{
		ID:              booking.ID,
		SlotID:          booking.SlotID,
		LessonType:      booking.LessonType,
		StudentID:       booking.StudentID,
		GuestName:       booking.GuestName,
		CalendarEventID: booking.CalendarEventID,
		RecurrenceID:    booking.RecurrenceID,
		Recurrence:      booking.Recurrence,
		CreatedAt:       booking.CreatedAt,
	}
	if booking.Slot != nil {
		row.Date = booking.Slot.DateKey()
		row.Time = booking.Slot.SlotTime
		row.DurationMinutes = booking.Slot.DurationMinutes
		row.IsAvailable = booking.Slot.IsAvailable
	}
	if booking.Student != nil {
		row.StudentName = &booking.Student.Name
	}
	return row
}
