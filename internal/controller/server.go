// Package controller exposes the admin HTTP API for slots, bookings, and
// the teacher/student roster.
package controller

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/controller/handlers"
	"github.com/tunewell/studio-server/internal/service"
)

type Server struct {
	app    *echo.Echo
	addr   string
	logger *zap.Logger
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func NewServer(addr string, bookingSvc *service.BookingService, rosterSvc *service.RosterService, logger *zap.Logger) *Server {
	app := echo.New()
	app.HideBanner = true
	app.Validator = &requestValidator{validate: validator.New()}

	app.Pre(middleware.RemoveTrailingSlash())
	app.Use(middleware.Recover())

	registerRoutes(app, bookingSvc, rosterSvc)

	return &Server{
		app:    app,
		addr:   addr,
		logger: logger,
	}
}

func registerRoutes(app *echo.Echo, bookingSvc *service.BookingService, rosterSvc *service.RosterService) {
	app.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})

	h := handlers.New(bookingSvc, rosterSvc)

	admin := app.Group("/api/admin")
	admin.GET("/slots", h.ListSlots)
	admin.POST("/slots", h.CreateSlot)
	admin.DELETE("/slots/:id", h.DeleteSlot)
	admin.GET("/bookings", h.ListBookings)
	admin.POST("/bookings", h.CreateBooking)
	admin.DELETE("/bookings/:id", h.CancelBooking)
	admin.GET("/teachers", h.ListTeachers)
	admin.POST("/teachers", h.CreateTeacher)
	admin.GET("/students", h.ListStudents)
	admin.POST("/students", h.CreateStudent)
}

func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.addr))
	return s.app.Start(s.addr)
}

func (s *Server) Stop(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.app.ServeHTTP(w, r)
}
