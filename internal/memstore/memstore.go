// Package memstore is an in-memory database implementing both
// directory.Repository and attendance.Store, with a users table behind Users.
// It enforces the same unique keys, references and cascades as the Postgres
// schema and is used by tests and by the memory store backend.
package memstore

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/auth"
	"rollcall/internal/directory"
)

type dayKey struct {
	student uuid.UUID
	date    time.Time
}

type rollKey struct {
	classroom uuid.UUID
	roll      string
}

// DB holds every table behind one lock.
type DB struct {
	mu sync.RWMutex

	users      map[uuid.UUID]auth.User
	usernames  map[string]uuid.UUID
	classrooms map[uuid.UUID]directory.Classroom
	students   map[uuid.UUID]directory.Student
	rolls      map[rollKey]uuid.UUID
	marks      map[dayKey]attendance.Record

	now func() time.Time
}

// New returns an empty database. now stamps created_at and marked_at; nil means time.Now.
func New(now func() time.Time) *DB {
	if now == nil {
		now = time.Now
	}
	return &DB{
		users:      make(map[uuid.UUID]auth.User),
		usernames:  make(map[string]uuid.UUID),
		classrooms: make(map[uuid.UUID]directory.Classroom),
		students:   make(map[uuid.UUID]directory.Student),
		rolls:      make(map[rollKey]uuid.UUID),
		marks:      make(map[dayKey]attendance.Record),
		now:        now,
	}
}

var (
	_ directory.Repository = (*DB)(nil)
	_ attendance.Store     = (*DB)(nil)
	_ auth.UserLookup      = (*Users)(nil)
)

// CreateClassroom inserts a classroom. Its teacher, if set, must be a user.
func (db *DB) CreateClassroom(_ context.Context, c directory.Classroom) (directory.Classroom, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if c.TeacherID.Valid {
		if _, ok := db.users[c.TeacherID.UUID]; !ok {
			return directory.Classroom{}, apperr.NotFound("user %s", c.TeacherID.UUID)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = db.now().UTC()
	db.classrooms[c.ID] = c
	return c, nil
}

func (db *DB) GetClassroom(_ context.Context, id uuid.UUID) (directory.Classroom, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.classrooms[id]
	if !ok {
		return directory.Classroom{}, apperr.NotFound("classroom %s", id)
	}
	return c, nil
}

func (db *DB) ListClassrooms(_ context.Context) ([]directory.Classroom, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	res := make([]directory.Classroom, 0, len(db.classrooms))
	for _, c := range db.classrooms {
		res = append(res, c)
	}
	slices.SortFunc(res, func(a, b directory.Classroom) int {
		if n := b.CreatedAt.Compare(a.CreatedAt); n != 0 {
			return n
		}
		return strings.Compare(a.Name, b.Name)
	})
	return res, nil
}

func (db *DB) CountClassrooms(_ context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return int64(len(db.classrooms)), nil
}

func (db *DB) ClearTeacher(_ context.Context, teacherID uuid.UUID) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var n int64
	for id, c := range db.classrooms {
		if c.TeacherID.Valid && c.TeacherID.UUID == teacherID {
			c.TeacherID = uuid.NullUUID{}
			db.classrooms[id] = c
			n++
		}
	}
	return n, nil
}

// DeleteClassroom removes a classroom with its students and their marks.
func (db *DB) DeleteClassroom(_ context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.classrooms[id]; !ok {
		return apperr.NotFound("classroom %s", id)
	}
	for sid, s := range db.students {
		if s.ClassroomID == id {
			db.deleteStudentLocked(sid)
		}
	}
	delete(db.classrooms, id)
	return nil
}

// CreateStudent inserts a student into an existing classroom. Roll numbers
// are unique per classroom.
func (db *DB) CreateStudent(_ context.Context, s directory.Student) (directory.Student, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.classrooms[s.ClassroomID]; !ok {
		return directory.Student{}, apperr.NotFound("classroom %s", s.ClassroomID)
	}
	key := rollKey{classroom: s.ClassroomID, roll: s.RollNumber}
	if _, taken := db.rolls[key]; taken {
		return directory.Student{}, apperr.Conflict("roll number %q already used in classroom", s.RollNumber)
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = db.now().UTC()
	db.students[s.ID] = s
	db.rolls[key] = s.ID
	return s, nil
}

func (db *DB) GetStudent(_ context.Context, id uuid.UUID) (directory.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.students[id]
	if !ok {
		return directory.Student{}, apperr.NotFound("student %s", id)
	}
	return s, nil
}

func (db *DB) ListStudents(_ context.Context, classroomID uuid.UUID) ([]directory.Student, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var res []directory.Student
	for _, s := range db.students {
		if s.ClassroomID == classroomID {
			res = append(res, s)
		}
	}
	slices.SortFunc(res, func(a, b directory.Student) int { return strings.Compare(a.RollNumber, b.RollNumber) })
	return res, nil
}

func (db *DB) CountStudents(_ context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return int64(len(db.students)), nil
}

// DeleteStudent removes a student and its marks.
func (db *DB) DeleteStudent(_ context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.students[id]; !ok {
		return apperr.NotFound("student %s", id)
	}
	db.deleteStudentLocked(id)
	return nil
}

func (db *DB) deleteStudentLocked(id uuid.UUID) {
	s := db.students[id]
	delete(db.rolls, rollKey{classroom: s.ClassroomID, roll: s.RollNumber})
	delete(db.students, id)
	for k := range db.marks {
		if k.student == id {
			delete(db.marks, k)
		}
	}
}

// Upsert writes the mark for (studentID, date), keeping the row id of an
// earlier mark for the same key.
func (db *DB) Upsert(_ context.Context, studentID uuid.UUID, date time.Time, status attendance.Status) (attendance.Record, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if _, ok := db.students[studentID]; !ok {
		return attendance.Record{}, apperr.NotFound("student %s", studentID)
	}
	key := dayKey{student: studentID, date: attendance.Day(date)}
	rec, ok := db.marks[key]
	if !ok {
		rec = attendance.Record{ID: uuid.New(), StudentID: studentID, Date: key.date}
	}
	rec.Status = status
	rec.MarkedAt = db.now().UTC()
	db.marks[key] = rec
	return rec, nil
}

func (db *DB) StatusesOn(_ context.Context, classroomID uuid.UUID, date time.Time) (map[uuid.UUID]attendance.Status, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	day := attendance.Day(date)
	res := make(map[uuid.UUID]attendance.Status)
	for k, rec := range db.marks {
		if k.date.Equal(day) && db.students[k.student].ClassroomID == classroomID {
			res[k.student] = rec.Status
		}
	}
	return res, nil
}

func (db *DB) CountByStudent(_ context.Context, classroomID uuid.UUID, from, to time.Time) ([]attendance.StatusCount, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	type group struct {
		student uuid.UUID
		status  attendance.Status
	}
	from, to = attendance.Day(from), attendance.Day(to)
	counts := make(map[group]int64)
	for k, rec := range db.marks {
		if db.students[k.student].ClassroomID != classroomID {
			continue
		}
		if k.date.Before(from) || !k.date.Before(to) {
			continue
		}
		counts[group{student: k.student, status: rec.Status}]++
	}
	res := make([]attendance.StatusCount, 0, len(counts))
	for g, n := range counts {
		res = append(res, attendance.StatusCount{StudentID: g.student, Status: g.status, Count: n})
	}
	return res, nil
}

func (db *DB) Find(_ context.Context, f attendance.Filter) ([]attendance.Entry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var res []attendance.Entry
	for k, rec := range db.marks {
		if f.StudentID.Valid && k.student != f.StudentID.UUID {
			continue
		}
		if !f.Date.IsZero() && !k.date.Equal(attendance.Day(f.Date)) {
			continue
		}
		s := db.students[k.student]
		res = append(res, attendance.Entry{
			Record:      rec,
			StudentName: s.Name,
			RollNumber:  s.RollNumber,
			ClassroomID: s.ClassroomID,
		})
	}
	slices.SortFunc(res, func(a, b attendance.Entry) int {
		if n := b.Date.Compare(a.Date); n != 0 {
			return n
		}
		return strings.Compare(a.RollNumber, b.RollNumber)
	})
	return res, nil
}

func (db *DB) Count(_ context.Context) (int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return int64(len(db.marks)), nil
}

func (db *DB) LatestDate(_ context.Context) (time.Time, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	var (
		latest time.Time
		found  bool
	)
	for k := range db.marks {
		if !found || k.date.After(latest) {
			latest, found = k.date, true
		}
	}
	return latest, found, nil
}

func (db *DB) CountByStatusOn(_ context.Context, date time.Time) (map[attendance.Status]int64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	day := attendance.Day(date)
	res := make(map[attendance.Status]int64)
	for k, rec := range db.marks {
		if k.date.Equal(day) {
			res[rec.Status]++
		}
	}
	return res, nil
}

func (db *DB) MonthlyCounts(_ context.Context, status attendance.Status) ([]attendance.MonthCount, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	counts := make(map[time.Time]int64)
	for k, rec := range db.marks {
		if rec.Status != status {
			continue
		}
		month := time.Date(k.date.Year(), k.date.Month(), 1, 0, 0, 0, 0, time.UTC)
		counts[month]++
	}
	res := make([]attendance.MonthCount, 0, len(counts))
	for m, n := range counts {
		res = append(res, attendance.MonthCount{Month: m, Count: n})
	}
	slices.SortFunc(res, func(a, b attendance.MonthCount) int { return a.Month.Compare(b.Month) })
	return res, nil
}
