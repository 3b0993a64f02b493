package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tunewell/studio-server/internal/model"
)

func (h *Handlers) ListTeachers(c echo.Context) error {
	teachers, err := h.roster.ListTeachers(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, teachers)
}

func (h *Handlers) CreateTeacher(c echo.Context) error {
	var req createTeacherRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	teacher := &model.Teacher{
		Name:       req.Name,
		Instrument: req.Instrument,
		Email:      req.Email,
	}
	if err := h.roster.CreateTeacher(c.Request().Context(), teacher); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true, "id": teacher.ID})
}

func (h *Handlers) ListStudents(c echo.Context) error {
	students, err := h.roster.ListStudents(c.Request().Context())
	if err != nil {
		return serviceError(err)
	}
	return c.JSON(http.StatusOK, students)
}

func (h *Handlers) CreateStudent(c echo.Context) error {
	var req createStudentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	student := &model.Student{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	}
	if err := h.roster.CreateStudent(c.Request().Context(), student); err != nil {
		return serviceError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{"ok": true, "id": student.ID})
}
