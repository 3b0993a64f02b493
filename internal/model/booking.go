package model

import "time"

// Booking reserves one slot for either a registered student or a guest
// identified by free-text contact details. Recurring bookings share a
// recurrence id and calendar event id across all expanded siblings.
type Booking struct {
	ID                 int64   `json:"id"`
	StudentID          *int64  `json:"student_id"`
	GuestName          *string `json:"guest_name"`
	GuestEmail         *string `json:"guest_email"`
	GuestPhone         *string `json:"guest_phone"`
	SlotID             int64   `json:"slot_id"`
	LessonType         *string `json:"lesson_type"`
	CalendarEventID    *string `json:"calendar_event_id"`
	RecurrenceID       *string `json:"recurrence_id"`
	CalendarInstanceID *string `json:"calendar_instance_id"`
	Recurrence         *string `json:"recurrence"`
	CreatedAt          time.Time `json:"created_at"`

	// Joined data, not from the bookings table itself.
	Slot    *Slot    `json:"slot,omitempty"`
	Student *Student `json:"student,omitempty"`
}

// IsRecurring reports whether the booking carries a recurrence rule.
func (b *Booking) IsRecurring() bool {
	return b.Recurrence != nil && *b.Recurrence != ""
}
