package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tunewell/studio-server/internal/service"
)

// ListBookings returns joined booking rows, filtered by date when given.
func (h *Handlers) ListBookings(c echo.Context) error {
	var date *time.Time
	if raw := c.QueryParam("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		date = &parsed
	}

	bookings, err := h.bookings.ListBookings(c.Request().Context(), date)
	if err != nil {
		return serviceError(err)
	}

	rows := make([]bookingRow, 0, len(bookings))
	for _, booking := range bookings {
		rows = append(rows, toBookingRow(booking))
	}
	return c.JSON(http.StatusOK, rows)
}

// CreateBooking reserves a slot and enqueues the processBooking job. A
// slot that is no longer available yields 409.
func (h *Handlers) CreateBooking(c echo.Context) error {
	var req createBookingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	booking, err := h.bookings.CreateBooking(c.Request().Context(), service.CreateBookingInput{
		StudentID:  req.StudentID,
		GuestName:  req.GuestName,
		GuestEmail: req.GuestEmail,
		GuestPhone: req.GuestPhone,
		SlotID:     req.SlotID,
		LessonType: req.LessonType,
		Recurrence: req.Recurrence,
	})
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"ok":         true,
		"bookingId":  booking.ID,
		"created_at": booking.CreatedAt,
	})
}

// CancelBooking restores the slot's availability and deletes the booking.
func (h *Handlers) CancelBooking(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.bookings.CancelBooking(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}
