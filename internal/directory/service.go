// Package directory owns classroom and student identities.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rollcall/internal/apperr"
)

// Service validates directory input and delegates to a Repository.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
}

// NewService creates a directory service. A nil validator or logger is replaced by a default.
func NewService(repo Repository, validate *validator.Validate, logger *slog.Logger) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, validate: validate, logger: logger}
}

// CreateClassroom stores a new classroom attributed to the given teacher, if any.
func (s *Service) CreateClassroom(ctx context.Context, in NewClassroom) (Classroom, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := apperr.FromValidator(s.validate.Struct(in)); err != nil {
		return Classroom{}, err
	}
	c, err := s.repo.CreateClassroom(ctx, Classroom{Name: in.Name, TeacherID: in.TeacherID})
	if err != nil {
		return Classroom{}, fmt.Errorf("create classroom: %w", err)
	}
	s.logger.Info("classroom created", "classroom_id", c.ID, "name", c.Name)
	return c, nil
}

// AddStudent enrolls a student in an existing classroom.
func (s *Service) AddStudent(ctx context.Context, in NewStudent) (Student, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.RollNumber = strings.TrimSpace(in.RollNumber)
	if err := apperr.FromValidator(s.validate.Struct(in)); err != nil {
		return Student{}, err
	}
	if _, err := s.repo.GetClassroom(ctx, in.ClassroomID); err != nil {
		return Student{}, err
	}
	st, err := s.repo.CreateStudent(ctx, Student{
		ClassroomID: in.ClassroomID,
		Name:        in.Name,
		RollNumber:  in.RollNumber,
	})
	if err != nil {
		return Student{}, fmt.Errorf("add student: %w", err)
	}
	s.logger.Info("student added", "student_id", st.ID, "classroom_id", st.ClassroomID, "roll_number", st.RollNumber)
	return st, nil
}

// GetClassroom returns a classroom or an ErrNotFound error.
func (s *Service) GetClassroom(ctx context.Context, id uuid.UUID) (Classroom, error) {
	return s.repo.GetClassroom(ctx, id)
}

// GetStudent returns a student or an ErrNotFound error.
func (s *Service) GetStudent(ctx context.Context, id uuid.UUID) (Student, error) {
	return s.repo.GetStudent(ctx, id)
}

// ListClassrooms returns every classroom, newest first.
func (s *Service) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	return s.repo.ListClassrooms(ctx)
}

// ListStudents returns the students of a classroom ordered by roll number.
func (s *Service) ListStudents(ctx context.Context, classroomID uuid.UUID) ([]Student, error) {
	if _, err := s.repo.GetClassroom(ctx, classroomID); err != nil {
		return nil, err
	}
	return s.repo.ListStudents(ctx, classroomID)
}

// CountClassrooms returns the number of classrooms.
func (s *Service) CountClassrooms(ctx context.Context) (int64, error) {
	return s.repo.CountClassrooms(ctx)
}

// CountStudents returns the number of enrolled students.
func (s *Service) CountStudents(ctx context.Context) (int64, error) {
	return s.repo.CountStudents(ctx)
}

// ReleaseTeacher clears the teacher reference of every classroom attributed
// to teacherID. It must run before the user is deleted; the classrooms and
// their students are kept.
func (s *Service) ReleaseTeacher(ctx context.Context, teacherID uuid.UUID) (int64, error) {
	if teacherID == uuid.Nil {
		return 0, apperr.Invalid("teacher id required")
	}
	n, err := s.repo.ClearTeacher(ctx, teacherID)
	if err != nil {
		return 0, fmt.Errorf("release teacher: %w", err)
	}
	if n > 0 {
		s.logger.Info("teacher released from classrooms", "teacher_id", teacherID, "classrooms", n)
	}
	return n, nil
}
