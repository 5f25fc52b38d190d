package attendance

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/store"
)

// Repository persists attendance data in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes the mark for (studentID, date). An existing row for the same
// key is overwritten in the same statement, so concurrent writers converge on
// the last write instead of failing on the unique key.
func (r *Repository) Upsert(ctx context.Context, studentID uuid.UUID, date time.Time, status Status) (Record, error) {
	rec := Record{ID: uuid.New(), StudentID: studentID, Date: Day(date), Status: status}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance (id, student_id, date, status, marked_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (student_id, date) DO UPDATE SET
			status = EXCLUDED.status,
			marked_at = NOW()
		RETURNING id, marked_at
	`, rec.ID, rec.StudentID, rec.Date, rec.Status)
	if err := row.Scan(&rec.ID, &rec.MarkedAt); err != nil {
		if store.IsForeignKeyViolation(err, store.AttendanceStudentConstraint) {
			return Record{}, apperr.NotFound("student %s", studentID)
		}
		return Record{}, err
	}
	return rec, nil
}

// StatusesOn returns the recorded marks of a classroom's students on one day.
func (r *Repository) StatusesOn(ctx context.Context, classroomID uuid.UUID, date time.Time) (map[uuid.UUID]Status, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.student_id, a.status
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE s.classroom_id = $1 AND a.date = $2
	`, classroomID, Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[uuid.UUID]Status)
	for rows.Next() {
		var (
			id uuid.UUID
			st Status
		)
		if err := rows.Scan(&id, &st); err != nil {
			return nil, err
		}
		res[id] = st
	}
	return res, rows.Err()
}

// CountByStudent groups a classroom's marks in [from, to) by student and status.
func (r *Repository) CountByStudent(ctx context.Context, classroomID uuid.UUID, from, to time.Time) ([]StatusCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.student_id, a.status, COUNT(*)
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE s.classroom_id = $1 AND a.date >= $2 AND a.date < $3
		GROUP BY a.student_id, a.status
	`, classroomID, Day(from), Day(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.StudentID, &c.Status, &c.Count); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// Find returns marks with basic filters, newest first.
func (r *Repository) Find(ctx context.Context, f Filter) ([]Entry, error) {
	query := `
		SELECT a.id, a.student_id, a.date, a.status, a.marked_at, s.name, s.roll_number, s.classroom_id
		FROM attendance a
		JOIN students s ON s.id = a.student_id`
	var (
		args    []any
		clauses []string
	)
	if f.StudentID.Valid {
		args = append(args, f.StudentID.UUID)
		clauses = append(clauses, "a.student_id = $"+strconv.Itoa(len(args)))
	}
	if !f.Date.IsZero() {
		args = append(args, Day(f.Date))
		clauses = append(clauses, "a.date = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY a.date DESC, s.roll_number COLLATE "C"`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.StudentID, &e.Date, &e.Status, &e.MarkedAt, &e.StudentName, &e.RollNumber, &e.ClassroomID); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// Count returns the number of attendance rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance`).Scan(&n)
	return n, err
}

// LatestDate returns the most recent day with at least one mark.
func (r *Repository) LatestDate(ctx context.Context) (time.Time, bool, error) {
	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(date) FROM attendance`).Scan(&latest); err != nil {
		return time.Time{}, false, err
	}
	return latest.Time, latest.Valid, nil
}

// CountByStatusOn groups one day's marks by status.
func (r *Repository) CountByStatusOn(ctx context.Context, date time.Time) (map[Status]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM attendance
		WHERE date = $1
		GROUP BY status
	`, Day(date))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[Status]int64)
	for rows.Next() {
		var (
			st Status
			n  int64
		)
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		res[st] = n
	}
	return res, rows.Err()
}

// MonthlyCounts counts marks of one status per calendar month, oldest first.
// Months without such marks are absent from the result.
func (r *Repository) MonthlyCounts(ctx context.Context, status Status) ([]MonthCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT date_trunc('month', date)::date AS month, COUNT(*)
		FROM attendance
		WHERE status = $1
		GROUP BY month
		ORDER BY month
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []MonthCount
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		res = append(res, mc)
	}
	return res, rows.Err()
}

var _ Store = (*Repository)(nil)
