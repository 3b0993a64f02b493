package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ListSlots returns all slots on a date, ordered by time.
func (h *Handlers) ListSlots(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	slots, err := h.bookings.ListSlots(c.Request().Context(), date)
	if err != nil {
		return serviceError(err)
	}

	rows := make([]slotRow, 0, len(slots))
	for _, slot := range slots {
		rows = append(rows, toSlotRow(slot))
	}
	return c.JSON(http.StatusOK, rows)
}

// CreateSlot inserts an available slot.
func (h *Handlers) CreateSlot(c echo.Context) error {
	var req createSlotRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	date, err := parseDate(req.SlotDate)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slot_date must be YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.SlotTime); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slot_time must be HH:MM")
	}

	slot, err := h.bookings.CreateSlot(c.Request().Context(), req.TeacherID, date, req.SlotTime, req.DurationMinutes)
	if err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true, "id": slot.ID})
}

// DeleteSlot removes a slot unconditionally.
func (h *Handlers) DeleteSlot(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.bookings.DeleteSlot(c.Request().Context(), id); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true})
}
