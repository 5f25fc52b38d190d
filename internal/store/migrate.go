package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Constraint names referenced by repositories when translating unique and
// foreign key violations.
const (
	StudentRollConstraint       = "students_classroom_roll_key"
	AttendanceDayConstraint     = "attendance_student_date_key"
	UsersUsernameConstraint     = "users_username_key"
	ClassroomTeacherConstraint  = "classrooms_teacher_id_fkey"
	AttendanceStudentConstraint = "attendance_student_id_fkey"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         UUID PRIMARY KEY,
		username   TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT users_username_key UNIQUE (username)
	)`,
	`CREATE TABLE IF NOT EXISTS classrooms (
		id         UUID PRIMARY KEY,
		name       VARCHAR(120) NOT NULL,
		teacher_id UUID NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT classrooms_teacher_id_fkey FOREIGN KEY (teacher_id) REFERENCES users(id) ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classrooms_teacher ON classrooms(teacher_id)`,
	`CREATE TABLE IF NOT EXISTS students (
		id           UUID PRIMARY KEY,
		classroom_id UUID NOT NULL REFERENCES classrooms(id) ON DELETE CASCADE,
		name         VARCHAR(120) NOT NULL,
		roll_number  VARCHAR(50) NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT students_classroom_roll_key UNIQUE (classroom_id, roll_number)
	)`,
	`CREATE TABLE IF NOT EXISTS attendance (
		id         UUID PRIMARY KEY,
		student_id UUID NOT NULL,
		date       DATE NOT NULL,
		status     CHAR(1) NOT NULL CHECK (status IN ('P', 'A', 'L')),
		marked_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT attendance_student_id_fkey FOREIGN KEY (student_id) REFERENCES students(id) ON DELETE CASCADE,
		CONSTRAINT attendance_student_date_key UNIQUE (student_id, date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_date ON attendance(date)`,
	`CREATE INDEX IF NOT EXISTS idx_attendance_status_date ON attendance(status, date)`,
}

// Migrate creates the schema when it does not exist yet. Every statement is
// idempotent so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
