package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/directory"
)

func TestRollNumberUniquePerClassroom(t *testing.T) {
	ctx := context.Background()
	db := New(nil)
	a, err := db.CreateClassroom(ctx, directory.Classroom{Name: "10A"})
	require.NoError(t, err)
	b, err := db.CreateClassroom(ctx, directory.Classroom{Name: "10A"})
	require.NoError(t, err, "names need not be unique")

	_, err = db.CreateStudent(ctx, directory.Student{ClassroomID: a.ID, Name: "x", RollNumber: "1"})
	require.NoError(t, err)
	_, err = db.CreateStudent(ctx, directory.Student{ClassroomID: a.ID, Name: "y", RollNumber: "1"})
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = db.CreateStudent(ctx, directory.Student{ClassroomID: b.ID, Name: "y", RollNumber: "1"})
	assert.NoError(t, err)
	_, err = db.CreateStudent(ctx, directory.Student{ClassroomID: uuid.New(), Name: "z", RollNumber: "1"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUpsertKeepsOneRowAndRefreshesMarkedAt(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	db := New(func() time.Time { return clock })
	c, _ := db.CreateClassroom(ctx, directory.Classroom{Name: "c"})
	s, _ := db.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "s", RollNumber: "1"})

	first, err := db.Upsert(ctx, s.ID, clock, attendance.Present)
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	second, err := db.Upsert(ctx, s.ID, clock.Add(3*time.Hour), attendance.Late)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, attendance.Late, second.Status)
	assert.True(t, second.MarkedAt.After(first.MarkedAt))
	n, _ := db.Count(ctx)
	assert.Equal(t, int64(1), n)

	_, err = db.Upsert(ctx, uuid.New(), clock, attendance.Present)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCascades(t *testing.T) {
	ctx := context.Background()
	db := New(nil)
	c, _ := db.CreateClassroom(ctx, directory.Classroom{Name: "c"})
	s1, _ := db.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "a", RollNumber: "1"})
	s2, _ := db.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "b", RollNumber: "2"})
	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, _ = db.Upsert(ctx, s1.ID, day, attendance.Present)
	_, _ = db.Upsert(ctx, s2.ID, day, attendance.Absent)

	require.NoError(t, db.DeleteStudent(ctx, s1.ID))
	n, _ := db.Count(ctx)
	assert.Equal(t, int64(1), n)

	// The roll number is free again.
	_, err := db.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "a2", RollNumber: "1"})
	require.NoError(t, err)

	require.NoError(t, db.DeleteClassroom(ctx, c.ID))
	n, _ = db.Count(ctx)
	assert.Zero(t, n)
	students, _ := db.CountStudents(ctx)
	assert.Zero(t, students)
	assert.ErrorIs(t, db.DeleteClassroom(ctx, c.ID), apperr.ErrNotFound)
}

func TestClearTeacher(t *testing.T) {
	ctx := context.Background()
	db := New(nil)
	teacher, err := db.Users().Create(ctx, "ms.k")
	require.NoError(t, err)
	other, err := db.Users().Create(ctx, "mr.j")
	require.NoError(t, err)
	a, _ := db.CreateClassroom(ctx, directory.Classroom{Name: "a", TeacherID: uuid.NullUUID{UUID: teacher.ID, Valid: true}})
	b, _ := db.CreateClassroom(ctx, directory.Classroom{Name: "b", TeacherID: uuid.NullUUID{UUID: other.ID, Valid: true}})

	n, err := db.ClearTeacher(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, _ := db.GetClassroom(ctx, a.ID)
	assert.False(t, got.TeacherID.Valid)
	got, _ = db.GetClassroom(ctx, b.ID)
	assert.True(t, got.TeacherID.Valid)
}

func TestClassroomTeacherMustExist(t *testing.T) {
	ctx := context.Background()
	db := New(nil)
	_, err := db.CreateClassroom(ctx, directory.Classroom{Name: "a", TeacherID: uuid.NullUUID{UUID: uuid.New(), Valid: true}})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorContains(t, err, "user")

	n, _ := db.CountClassrooms(ctx)
	assert.Zero(t, n)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	db := New(nil)
	users := db.Users()

	u, err := users.Create(ctx, "ms.k")
	require.NoError(t, err)
	_, err = users.Create(ctx, "ms.k")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	_, err = users.Create(ctx, " ")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	got, err := users.GetByUsername(ctx, "ms.k")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	c, err := db.CreateClassroom(ctx, directory.Classroom{Name: "10A", TeacherID: uuid.NullUUID{UUID: u.ID, Valid: true}})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, u.ID))
	_, err = users.GetByID(ctx, u.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, users.Delete(ctx, u.ID), apperr.ErrNotFound)

	kept, err := db.GetClassroom(ctx, c.ID)
	require.NoError(t, err, "classroom outlives its teacher")
	assert.False(t, kept.TeacherID.Valid)

	_, err = users.Create(ctx, "ms.k")
	assert.NoError(t, err, "username is free again")
}

func TestListClassroomsNewestFirst(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	db := New(func() time.Time { clock = clock.Add(time.Minute); return clock })
	_, _ = db.CreateClassroom(ctx, directory.Classroom{Name: "old"})
	_, _ = db.CreateClassroom(ctx, directory.Classroom{Name: "new"})

	list, err := db.ListClassrooms(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].Name)
}

func TestMonthlyCountsSparse(t *testing.T) {
	ctx := context.Background()
	db := New(nil)
	c, _ := db.CreateClassroom(ctx, directory.Classroom{Name: "c"})
	s, _ := db.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "a", RollNumber: "1"})
	_, _ = db.Upsert(ctx, s.ID, time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC), attendance.Present)
	_, _ = db.Upsert(ctx, s.ID, time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC), attendance.Absent)
	_, _ = db.Upsert(ctx, s.ID, time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), attendance.Present)

	got, err := db.MonthlyCounts(ctx, attendance.Present)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.January, got[0].Month.Month())
	assert.Equal(t, time.March, got[1].Month.Month())
}
