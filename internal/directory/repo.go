package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/store"
)

// PostgresRepository persists classrooms and students in Postgres.
type PostgresRepository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateClassroom inserts a classroom, assigning an id when none is set. A
// teacher that does not exist as a user is reported as not found.
func (r *PostgresRepository) CreateClassroom(ctx context.Context, c Classroom) (Classroom, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO classrooms (id, name, teacher_id)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, c.ID, c.Name, c.TeacherID)
	if err := row.Scan(&c.CreatedAt); err != nil {
		if store.IsForeignKeyViolation(err, store.ClassroomTeacherConstraint) {
			return Classroom{}, apperr.NotFound("user %s", c.TeacherID.UUID)
		}
		return Classroom{}, err
	}
	return c, nil
}

// GetClassroom returns a single classroom by id.
func (r *PostgresRepository) GetClassroom(ctx context.Context, id uuid.UUID) (Classroom, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, teacher_id, created_at
		FROM classrooms WHERE id = $1
	`, id)
	var c Classroom
	if err := row.Scan(&c.ID, &c.Name, &c.TeacherID, &c.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Classroom{}, apperr.NotFound("classroom %s", id)
		}
		return Classroom{}, err
	}
	return c, nil
}

// ListClassrooms returns all classrooms, newest first.
func (r *PostgresRepository) ListClassrooms(ctx context.Context) ([]Classroom, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, teacher_id, created_at
		FROM classrooms
		ORDER BY created_at DESC, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Classroom
	for rows.Next() {
		var c Classroom
		if err := rows.Scan(&c.ID, &c.Name, &c.TeacherID, &c.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// CountClassrooms returns the number of classrooms.
func (r *PostgresRepository) CountClassrooms(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM classrooms`).Scan(&n)
	return n, err
}

// ClearTeacher detaches a teacher from every classroom they own.
func (r *PostgresRepository) ClearTeacher(ctx context.Context, teacherID uuid.UUID) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE classrooms SET teacher_id = NULL WHERE teacher_id = $1`, teacherID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// CreateStudent inserts a student. A duplicate roll number in the same
// classroom is reported as a conflict.
func (r *PostgresRepository) CreateStudent(ctx context.Context, s Student) (Student, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO students (id, classroom_id, name, roll_number)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, s.ID, s.ClassroomID, s.Name, s.RollNumber)
	if err := row.Scan(&s.CreatedAt); err != nil {
		if store.IsUniqueViolation(err, store.StudentRollConstraint) {
			return Student{}, apperr.Conflict("roll number %q already used in classroom", s.RollNumber)
		}
		return Student{}, err
	}
	return s, nil
}

// GetStudent returns a single student by id.
func (r *PostgresRepository) GetStudent(ctx context.Context, id uuid.UUID) (Student, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, classroom_id, name, roll_number, created_at
		FROM students WHERE id = $1
	`, id)
	var s Student
	if err := row.Scan(&s.ID, &s.ClassroomID, &s.Name, &s.RollNumber, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, apperr.NotFound("student %s", id)
		}
		return Student{}, err
	}
	return s, nil
}

// ListStudents returns the students of a classroom ordered by roll number.
func (r *PostgresRepository) ListStudents(ctx context.Context, classroomID uuid.UUID) ([]Student, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, classroom_id, name, roll_number, created_at
		FROM students
		WHERE classroom_id = $1
		ORDER BY roll_number COLLATE "C"
	`, classroomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Student
	for rows.Next() {
		var s Student
		if err := rows.Scan(&s.ID, &s.ClassroomID, &s.Name, &s.RollNumber, &s.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, s)
	}
	return res, rows.Err()
}

// CountStudents returns the number of students across all classrooms.
func (r *PostgresRepository) CountStudents(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM students`).Scan(&n)
	return n, err
}

var _ Repository = (*PostgresRepository)(nil)
