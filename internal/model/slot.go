package model

import (
	"fmt"
	"time"
)

// Slot is a bookable calendar cell. Times are wall-clock values in the
// studio's timezone; SlotTime is kept as "HH:MM" on a 30-minute grid.
type Slot struct {
	ID              int64     `json:"id"`
	TeacherID       *int64    `json:"teacher_id"`
	SlotDate        time.Time `json:"slot_date"`
	SlotTime        string    `json:"slot_time"`
	DurationMinutes int       `json:"duration_minutes"`
	IsAvailable     bool      `json:"is_available"`
}

// Start combines the slot's date and time-of-day in the given location.
func (s *Slot) Start(loc *time.Location) (time.Time, error) {
	t, err := time.Parse("15:04", s.SlotTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse slot time %q: %w", s.SlotTime, err)
	}
	d := s.SlotDate
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

// End is Start plus the slot duration.
func (s *Slot) End(loc *time.Location) (time.Time, error) {
	start, err := s.Start(loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(s.DurationMinutes) * time.Minute), nil
}

// DateKey is the slot date as YYYY-MM-DD.
func (s *Slot) DateKey() string {
	return s.SlotDate.Format("2006-01-02")
}
