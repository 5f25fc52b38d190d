package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/directory"
)

// Record is one attendance mark: at most one per student per day.
type Record struct {
	ID        uuid.UUID `json:"id"`
	StudentID uuid.UUID `json:"student_id"`
	Date      time.Time `json:"date"`
	Status    Status    `json:"status"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Entry is a Record joined with the identity of its student.
type Entry struct {
	Record
	StudentName string    `json:"student_name"`
	RollNumber  string    `json:"roll_number"`
	ClassroomID uuid.UUID `json:"classroom_id"`
}

// Filter narrows Find. Zero fields do not filter.
type Filter struct {
	StudentID uuid.NullUUID
	Date      time.Time
}

// StudentStatus pairs a student with their mark on one day.
type StudentStatus struct {
	Student directory.Student `json:"student"`
	Status  Status            `json:"status"`
}

// StudentSummary is one row of the monthly report.
type StudentSummary struct {
	Student directory.Student `json:"student"`
	Total   int64             `json:"total"`
	Present int64             `json:"present"`
	Late    int64             `json:"late"`
	Absent  int64             `json:"absent"`
	Percent float64           `json:"percent"`
}

// ReportQuery selects the scope of a monthly report.
type ReportQuery struct {
	ClassroomID uuid.UUID `validate:"required"`
	Month       int       `validate:"min=1,max=12"`
	Year        int       `validate:"min=1,max=9999"`
	StudentID   uuid.NullUUID
}

// MonthlyReport lists one summary per student in scope, in roll number order.
type MonthlyReport struct {
	Classroom directory.Classroom `json:"classroom"`
	Month     int                 `json:"month"`
	Year      int                 `json:"year"`
	Rows      []StudentSummary    `json:"rows"`
}

// TrendPoint counts Present marks in one calendar month, labelled YYYY-MM.
type TrendPoint struct {
	Month string `json:"month"`
	Count int64  `json:"count"`
}

// Dashboard is the snapshot shown on the landing page. LatestDate is nil
// when no attendance has been recorded yet.
type Dashboard struct {
	TotalStudents   int64            `json:"total_students"`
	TotalClassrooms int64            `json:"total_classrooms"`
	TotalAttendance int64            `json:"total_attendance"`
	LatestDate      *time.Time       `json:"latest_date"`
	Pie             map[Status]int64 `json:"pie"`
	Trend           []TrendPoint     `json:"trend"`
}

// StatusCount is a grouped row: how many marks of one status a student has
// in some date range.
type StatusCount struct {
	StudentID uuid.UUID
	Status    Status
	Count     int64
}

// MonthCount is a grouped row keyed by the first day of a month.
type MonthCount struct {
	Month time.Time
	Count int64
}

// Store is the data-access handle for attendance rows. Dates are calendar
// days in UTC; ranges are half-open [from, to).
type Store interface {
	// Upsert writes or replaces the mark for (studentID, date) and refreshes MarkedAt.
	Upsert(ctx context.Context, studentID uuid.UUID, date time.Time, status Status) (Record, error)
	StatusesOn(ctx context.Context, classroomID uuid.UUID, date time.Time) (map[uuid.UUID]Status, error)
	CountByStudent(ctx context.Context, classroomID uuid.UUID, from, to time.Time) ([]StatusCount, error)
	Find(ctx context.Context, f Filter) ([]Entry, error)

	Count(ctx context.Context) (int64, error)
	LatestDate(ctx context.Context) (time.Time, bool, error)
	CountByStatusOn(ctx context.Context, date time.Time) (map[Status]int64, error)
	MonthlyCounts(ctx context.Context, status Status) ([]MonthCount, error)
}

// Directory is the read-only view of classrooms and students the
// aggregator needs. *directory.Service satisfies it.
type Directory interface {
	GetClassroom(ctx context.Context, id uuid.UUID) (directory.Classroom, error)
	GetStudent(ctx context.Context, id uuid.UUID) (directory.Student, error)
	ListStudents(ctx context.Context, classroomID uuid.UUID) ([]directory.Student, error)
	CountClassrooms(ctx context.Context) (int64, error)
	CountStudents(ctx context.Context) (int64, error)
}
