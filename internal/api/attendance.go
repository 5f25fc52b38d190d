package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
)

type statusView struct {
	StudentID  uuid.UUID         `json:"student_id"`
	Name       string            `json:"name"`
	RollNumber string            `json:"roll_number"`
	Status     attendance.Status `json:"status"`
}

type entryView struct {
	ID          uuid.UUID         `json:"id"`
	StudentID   uuid.UUID         `json:"student_id"`
	StudentName string            `json:"student_name"`
	RollNumber  string            `json:"roll_number"`
	ClassroomID uuid.UUID         `json:"classroom_id"`
	Date        string            `json:"date"`
	Status      attendance.Status `json:"status"`
	MarkedAt    time.Time         `json:"marked_at"`
}

type dashboardView struct {
	TotalStudents   int64                       `json:"total_students"`
	TotalClassrooms int64                       `json:"total_classrooms"`
	TotalAttendance int64                       `json:"total_attendance"`
	LatestDate      *string                     `json:"latest_date"`
	Pie             map[attendance.Status]int64 `json:"pie"`
	Trend           []attendance.TrendPoint     `json:"trend"`
}

func statusViews(in []attendance.StudentStatus) []statusView {
	out := make([]statusView, 0, len(in))
	for _, s := range in {
		out = append(out, statusView{
			StudentID:  s.Student.ID,
			Name:       s.Student.Name,
			RollNumber: s.Student.RollNumber,
			Status:     s.Status,
		})
	}
	return out
}

// dateOrToday parses raw, falling back to today when it is empty.
func (s *Server) dateOrToday(raw string) (time.Time, error) {
	if raw == "" {
		return s.today(), nil
	}
	return attendance.ParseDate(raw)
}

func (s *Server) statusMap(c *gin.Context) {
	id, err := attendance.ParseID("classroom", c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	day, err := s.dateOrToday(c.Query("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	statuses, err := s.att.StatusMap(c.Request.Context(), id, day)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"classroom_id": id,
		"date":         day.Format(attendance.DateLayout),
		"students":     statusViews(statuses),
	})
}

func (s *Server) markDay(c *gin.Context) {
	id, err := attendance.ParseID("classroom", c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	var req struct {
		Date     string            `json:"date"`
		Statuses map[string]string `json:"statuses"`
	}
	// An empty body is an empty submission: everyone Absent today.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(c, apperr.Invalid("malformed body: %v", err))
		return
	}
	day, err := s.dateOrToday(req.Date)
	if err != nil {
		s.fail(c, err)
		return
	}
	marks, err := attendance.ParseMarks(req.Statuses)
	if err != nil {
		s.fail(c, err)
		return
	}
	saved, err := s.att.MarkDay(c.Request.Context(), id, day, marks)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{
		"message":      "attendance saved for " + day.Format(attendance.DateLayout),
		"classroom_id": id,
		"date":         day.Format(attendance.DateLayout),
		"students":     statusViews(saved),
	})
}

func (s *Server) monthlyReport(c *gin.Context) {
	classroomID, err := attendance.ParseID("classroom", c.Query("classroom"))
	if err != nil {
		s.fail(c, err)
		return
	}
	today := s.today()
	q := attendance.ReportQuery{ClassroomID: classroomID, Month: int(today.Month()), Year: today.Year()}
	if raw := c.Query("month"); raw != "" {
		if q.Month, err = attendance.ParseMonth(raw); err != nil {
			s.fail(c, err)
			return
		}
	}
	if raw := c.Query("year"); raw != "" {
		if q.Year, err = attendance.ParseYear(raw); err != nil {
			s.fail(c, err)
			return
		}
	}
	if raw := c.Query("student"); raw != "" {
		studentID, err := attendance.ParseID("student", raw)
		if err != nil {
			s.fail(c, err)
			return
		}
		q.StudentID = uuid.NullUUID{UUID: studentID, Valid: true}
	}

	report, err := s.att.MonthlyReport(c.Request.Context(), q)
	if err != nil {
		s.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"report": report})
}

func (s *Server) findAttendance(c *gin.Context) {
	var f attendance.Filter
	if raw := c.Query("student"); raw != "" {
		id, err := attendance.ParseID("student", raw)
		if err != nil {
			s.fail(c, err)
			return
		}
		f.StudentID = uuid.NullUUID{UUID: id, Valid: true}
	}
	if raw := c.Query("date"); raw != "" {
		day, err := attendance.ParseDate(raw)
		if err != nil {
			s.fail(c, err)
			return
		}
		f.Date = day
	}

	entries, err := s.att.Find(c.Request.Context(), f)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{
			ID:          e.ID,
			StudentID:   e.StudentID,
			StudentName: e.StudentName,
			RollNumber:  e.RollNumber,
			ClassroomID: e.ClassroomID,
			Date:        e.Date.Format(attendance.DateLayout),
			Status:      e.Status,
			MarkedAt:    e.MarkedAt,
		})
	}
	respond(c, http.StatusOK, gin.H{"records": out})
}

func (s *Server) dashboard(c *gin.Context) {
	d, err := s.att.Dashboard(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	view := dashboardView{
		TotalStudents:   d.TotalStudents,
		TotalClassrooms: d.TotalClassrooms,
		TotalAttendance: d.TotalAttendance,
		Pie:             d.Pie,
		Trend:           d.Trend,
	}
	if d.LatestDate != nil {
		latest := d.LatestDate.Format(attendance.DateLayout)
		view.LatestDate = &latest
	}
	respond(c, http.StatusOK, gin.H{"dashboard": view})
}
