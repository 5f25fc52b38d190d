package directory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Classroom is a named group of students, optionally attributed to a teacher.
type Classroom struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	TeacherID uuid.NullUUID `json:"teacher_id"`
	CreatedAt time.Time     `json:"created_at"`
}

// Student belongs to exactly one classroom. RollNumber is unique within it.
type Student struct {
	ID          uuid.UUID `json:"id"`
	ClassroomID uuid.UUID `json:"classroom_id"`
	Name        string    `json:"name"`
	RollNumber  string    `json:"roll_number"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewClassroom is the input for CreateClassroom.
type NewClassroom struct {
	Name      string `validate:"required,max=120"`
	TeacherID uuid.NullUUID
}

// NewStudent is the input for AddStudent.
type NewStudent struct {
	ClassroomID uuid.UUID `validate:"required"`
	Name        string    `validate:"required,max=120"`
	RollNumber  string    `validate:"required,max=50"`
}

// Repository persists classrooms and students.
//
// Get methods return an error wrapping apperr.ErrNotFound when the row is
// missing; CreateStudent returns apperr.ErrConflict when the roll number is
// already taken in the classroom.
type Repository interface {
	CreateClassroom(ctx context.Context, c Classroom) (Classroom, error)
	GetClassroom(ctx context.Context, id uuid.UUID) (Classroom, error)
	ListClassrooms(ctx context.Context) ([]Classroom, error)
	CountClassrooms(ctx context.Context) (int64, error)
	ClearTeacher(ctx context.Context, teacherID uuid.UUID) (int64, error)

	CreateStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, id uuid.UUID) (Student, error)
	ListStudents(ctx context.Context, classroomID uuid.UUID) ([]Student, error)
	CountStudents(ctx context.Context) (int64, error)
}
