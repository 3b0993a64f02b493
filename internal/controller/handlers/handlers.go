package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tunewell/studio-server/internal/repository"
	"github.com/tunewell/studio-server/internal/service"
)

type Handlers struct {
	bookings *service.BookingService
	roster   *service.RosterService
}

func New(bookings *service.BookingService, roster *service.RosterService) *Handlers {
	return &Handlers{bookings: bookings, roster: roster}
}

func parseDate(value string) (time.Time, error) {
	return time.Parse("2006-01-02", value)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// serviceError maps typed service errors to HTTP responses.
func serviceError(err error) error {
	switch {
	case errors.Is(err, repository.ErrSlotNotFound), errors.Is(err, repository.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return err
	}
}
