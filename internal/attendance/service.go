// Package attendance stores daily attendance marks and derives the monthly
// report, the daily status map and the dashboard snapshot from them.
package attendance

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/directory"
	"rollcall/internal/metrics"
)

const trendLabelLayout = "2006-01"

// Service coordinates the attendance store and the classroom directory.
type Service struct {
	store    Store
	dir      Directory
	validate *validator.Validate
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// NewService creates a service backed by a store. validate, logger and m may be nil.
func NewService(store Store, dir Directory, validate *validator.Validate, logger *slog.Logger, m *metrics.Metrics) *Service {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, dir: dir, validate: validate, logger: logger, metrics: m}
}

// MarkDay writes one mark per student of the classroom for date. Students
// missing from marks are recorded Absent. Each row is upserted on its own,
// so a failure part way leaves earlier rows written.
func (s *Service) MarkDay(ctx context.Context, classroomID uuid.UUID, date time.Time, marks map[uuid.UUID]Status) ([]StudentStatus, error) {
	if date.IsZero() {
		return nil, apperr.Invalid("date required")
	}
	date = Day(date)

	students, err := s.dir.ListStudents(ctx, classroomID)
	if err != nil {
		return nil, err
	}

	enrolled := make(map[uuid.UUID]struct{}, len(students))
	for _, st := range students {
		enrolled[st.ID] = struct{}{}
	}
	for id, status := range marks {
		if _, ok := enrolled[id]; !ok {
			return nil, apperr.Invalid("student %s is not in classroom %s", id, classroomID)
		}
		if !status.Valid() {
			return nil, apperr.Invalid("invalid status for student %s", id)
		}
	}

	out := make([]StudentStatus, 0, len(students))
	for _, st := range students {
		status, ok := marks[st.ID]
		if !ok {
			status = Absent
		}
		if _, err := s.store.Upsert(ctx, st.ID, date, status); err != nil {
			return out, fmt.Errorf("mark %s on %s: %w", st.ID, date.Format(DateLayout), err)
		}
		s.metrics.MarkWritten(status.Code())
		out = append(out, StudentStatus{Student: st, Status: status})
	}

	s.logger.Info("attendance marked",
		"classroom_id", classroomID,
		"date", date.Format(DateLayout),
		"students", len(out),
		"explicit", len(marks))
	return out, nil
}

// StatusMap returns every student of the classroom in roll order with their
// mark on date, Absent when none was recorded.
func (s *Service) StatusMap(ctx context.Context, classroomID uuid.UUID, date time.Time) ([]StudentStatus, error) {
	if date.IsZero() {
		return nil, apperr.Invalid("date required")
	}
	date = Day(date)

	students, err := s.dir.ListStudents(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	recorded, err := s.store.StatusesOn(ctx, classroomID, date)
	if err != nil {
		return nil, fmt.Errorf("load statuses: %w", err)
	}

	out := make([]StudentStatus, 0, len(students))
	for _, st := range students {
		status, ok := recorded[st.ID]
		if !ok {
			status = Absent
		}
		out = append(out, StudentStatus{Student: st, Status: status})
	}
	return out, nil
}

// MonthlyReport summarises each student's marks for one calendar month.
// Every student in scope appears, including those with no marks.
func (s *Service) MonthlyReport(ctx context.Context, q ReportQuery) (MonthlyReport, error) {
	defer s.metrics.ObserveReport("monthly", time.Now())

	if err := apperr.FromValidator(s.validate.Struct(q)); err != nil {
		return MonthlyReport{}, err
	}

	classroom, err := s.dir.GetClassroom(ctx, q.ClassroomID)
	if err != nil {
		return MonthlyReport{}, err
	}
	students, err := s.dir.ListStudents(ctx, q.ClassroomID)
	if err != nil {
		return MonthlyReport{}, err
	}
	if q.StudentID.Valid {
		students, err = only(students, q.StudentID.UUID, q.ClassroomID)
		if err != nil {
			return MonthlyReport{}, err
		}
	}

	from := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)
	counts, err := s.store.CountByStudent(ctx, q.ClassroomID, from, to)
	if err != nil {
		return MonthlyReport{}, fmt.Errorf("count attendance: %w", err)
	}

	byStudent := make(map[uuid.UUID]*StudentSummary, len(students))
	rows := make([]StudentSummary, len(students))
	for i, st := range students {
		rows[i].Student = st
		byStudent[st.ID] = &rows[i]
	}
	for _, c := range counts {
		row, ok := byStudent[c.StudentID]
		if !ok {
			continue
		}
		row.Total += c.Count
		switch c.Status {
		case Present:
			row.Present += c.Count
		case Absent:
			row.Absent += c.Count
		case Late:
			row.Late += c.Count
		}
	}
	for i := range rows {
		rows[i].Percent = percent(rows[i].Present, rows[i].Total)
	}

	return MonthlyReport{Classroom: classroom, Month: q.Month, Year: q.Year, Rows: rows}, nil
}

// Find lists marks matching f, newest first.
func (s *Service) Find(ctx context.Context, f Filter) ([]Entry, error) {
	if f.StudentID.Valid {
		if _, err := s.dir.GetStudent(ctx, f.StudentID.UUID); err != nil {
			return nil, err
		}
	}
	if !f.Date.IsZero() {
		f.Date = Day(f.Date)
	}
	entries, err := s.store.Find(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return entries, nil
}

// Dashboard builds the snapshot: totals, the status breakdown of the most
// recent marked day and the monthly Present trend.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	defer s.metrics.ObserveReport("dashboard", time.Now())

	var (
		d   Dashboard
		err error
	)
	if d.TotalStudents, err = s.dir.CountStudents(ctx); err != nil {
		return Dashboard{}, fmt.Errorf("count students: %w", err)
	}
	if d.TotalClassrooms, err = s.dir.CountClassrooms(ctx); err != nil {
		return Dashboard{}, fmt.Errorf("count classrooms: %w", err)
	}
	if d.TotalAttendance, err = s.store.Count(ctx); err != nil {
		return Dashboard{}, fmt.Errorf("count attendance: %w", err)
	}

	d.Pie = make(map[Status]int64, len(Statuses))
	for _, st := range Statuses {
		d.Pie[st] = 0
	}
	latest, ok, err := s.store.LatestDate(ctx)
	if err != nil {
		return Dashboard{}, fmt.Errorf("latest date: %w", err)
	}
	if ok {
		latest = Day(latest)
		d.LatestDate = &latest
		byStatus, err := s.store.CountByStatusOn(ctx, latest)
		if err != nil {
			return Dashboard{}, fmt.Errorf("status breakdown: %w", err)
		}
		for st, n := range byStatus {
			if !st.Valid() {
				s.logger.Warn("ignoring unknown status in breakdown", "status", st)
				continue
			}
			d.Pie[st] += n
		}
	}

	months, err := s.store.MonthlyCounts(ctx, Present)
	if err != nil {
		return Dashboard{}, fmt.Errorf("presence trend: %w", err)
	}
	slices.SortFunc(months, func(a, b MonthCount) int { return a.Month.Compare(b.Month) })
	d.Trend = make([]TrendPoint, 0, len(months))
	for _, m := range months {
		if m.Count == 0 {
			continue
		}
		d.Trend = append(d.Trend, TrendPoint{Month: m.Month.Format(trendLabelLayout), Count: m.Count})
	}
	return d, nil
}

func only(students []directory.Student, studentID, classroomID uuid.UUID) ([]directory.Student, error) {
	for _, st := range students {
		if st.ID == studentID {
			return []directory.Student{st}, nil
		}
	}
	return nil, apperr.NotFound("student %s in classroom %s", studentID, classroomID)
}

// percent returns present/total as a percentage rounded to two decimals, or
// zero when nothing was recorded.
func percent(present, total int64) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(present)/float64(total)*10000) / 100
}
