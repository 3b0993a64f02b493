package repository

import "errors"

var (
	// ErrSlotNotFound is returned when a referenced slot does not exist.
	ErrSlotNotFound = errors.New("slot not found")

	// ErrSlotTaken is returned by the conditional claim when the slot
	// exists but is no longer available.
	ErrSlotTaken = errors.New("slot is already booked")

	// ErrBookingNotFound is returned when a referenced booking does not exist.
	ErrBookingNotFound = errors.New("booking not found")
)
