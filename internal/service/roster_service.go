package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/tunewell/studio-server/internal/model"
)

type TeacherStore interface {
	Create(ctx context.Context, teacher *model.Teacher) error
	List(ctx context.Context) ([]*model.Teacher, error)
}

type StudentStore interface {
	Create(ctx context.Context, student *model.Student) error
	List(ctx context.Context) ([]*model.Student, error)
}

// RosterService is the thin CRUD surface behind the admin console's
// teacher and student pages.
type RosterService struct {
	teachers TeacherStore
	students StudentStore
	logger   *zap.Logger
}

func NewRosterService(teachers TeacherStore, students StudentStore, logger *zap.Logger) *RosterService {
	return &RosterService{
		teachers: teachers,
		students: students,
		logger:   logger,
	}
}

func (s *RosterService) ListTeachers(ctx context.Context) ([]*model.Teacher, error) {
	return s.teachers.List(ctx)
}

func (s *RosterService) CreateTeacher(ctx context.Context, teacher *model.Teacher) error {
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return err
	}
	s.logger.Info("Teacher created", zap.Int64("teacher_id", teacher.ID), zap.String("name", teacher.Name))
	return nil
}

func (s *RosterService) ListStudents(ctx context.Context) ([]*model.Student, error) {
	return s.students.List(ctx)
}

func (s *RosterService) CreateStudent(ctx context.Context, student *model.Student) error {
	if err := s.students.Create(ctx, student); err != nil {
		return err
	}
	s.logger.Info("Student created", zap.Int64("student_id", student.ID), zap.String("name", student.Name))
	return nil
}
