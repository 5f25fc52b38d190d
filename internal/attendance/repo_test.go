package attendance_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
	"rollcall/internal/attendance"
	"rollcall/internal/directory"
	"rollcall/internal/store"
)

// openTestDB connects to TEST_DATABASE_URL and creates the schema. Tests
// are skipped when it is not set.
func openTestDB(t *testing.T) *store.DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := store.NewDB(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(ctx, db.Client))
	return db
}

func TestRepositoryUpsertConverges(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	dirRepo := directory.NewRepository(db.Client)
	repo := attendance.NewRepository(db.Client)

	c, err := dirRepo.CreateClassroom(ctx, directory.Classroom{Name: "repo-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Client.Exec(`DELETE FROM classrooms WHERE id = $1`, c.ID) })
	st, err := dirRepo.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "A", RollNumber: "1"})
	require.NoError(t, err)

	day := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	first, err := repo.Upsert(ctx, st.ID, day, attendance.Present)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Upsert(ctx, st.ID, day, attendance.Late)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := repo.Find(ctx, attendance.Filter{StudentID: uuid.NullUUID{UUID: st.ID, Valid: true}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, entries[0].ID, "upsert keeps the original row")
	assert.Equal(t, attendance.Late, entries[0].Status)
	assert.False(t, entries[0].MarkedAt.Before(first.MarkedAt))

	statuses, err := repo.StatusesOn(ctx, c.ID, day)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]attendance.Status{st.ID: attendance.Late}, statuses)

	counts, err := repo.CountByStudent(ctx, c.ID, day, day.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, []attendance.StatusCount{{StudentID: st.ID, Status: attendance.Late, Count: 1}}, counts)
}

func TestRepositoryDuplicateRollIsConflict(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	dirRepo := directory.NewRepository(db.Client)

	c, err := dirRepo.CreateClassroom(ctx, directory.Classroom{Name: "roll-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Client.Exec(`DELETE FROM classrooms WHERE id = $1`, c.ID) })

	_, err = dirRepo.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "A", RollNumber: "7"})
	require.NoError(t, err)
	_, err = dirRepo.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "B", RollNumber: "7"})
	assert.ErrorContains(t, err, "conflict")
}

func TestRepositoryDashboardAndFind(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	dirRepo := directory.NewRepository(db.Client)
	repo := attendance.NewRepository(db.Client)
	svc := attendance.NewService(repo, directory.NewService(dirRepo, nil, nil), nil, nil, nil)

	before, err := svc.Dashboard(ctx)
	require.NoError(t, err)

	c, err := dirRepo.CreateClassroom(ctx, directory.Classroom{Name: "dashboard-test"})
	require.NoError(t, err)
	t.Cleanup(func() { _, _ = db.Client.Exec(`DELETE FROM classrooms WHERE id = $1`, c.ID) })
	// Bytewise order puts "a-2" first; a punctuation-blind collation would not.
	first, err := dirRepo.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "A", RollNumber: "a-2"})
	require.NoError(t, err)
	second, err := dirRepo.CreateStudent(ctx, directory.Student{ClassroomID: c.ID, Name: "B", RollNumber: "a1"})
	require.NoError(t, err)

	// Far future dates so these rows own the latest day and their months.
	jan := time.Date(2091, time.January, 10, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2091, time.February, 3, 0, 0, 0, 0, time.UTC)
	_, err = svc.MarkDay(ctx, c.ID, jan, map[uuid.UUID]attendance.Status{first.ID: attendance.Present, second.ID: attendance.Present})
	require.NoError(t, err)
	_, err = svc.MarkDay(ctx, c.ID, feb, map[uuid.UUID]attendance.Status{first.ID: attendance.Late})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalStudents+2, d.TotalStudents)
	assert.Equal(t, before.TotalClassrooms+1, d.TotalClassrooms)
	assert.Equal(t, before.TotalAttendance+4, d.TotalAttendance)
	require.NotNil(t, d.LatestDate)
	assert.True(t, feb.Equal(*d.LatestDate), "latest date %v", d.LatestDate)
	assert.Equal(t, map[attendance.Status]int64{attendance.Present: 0, attendance.Absent: 1, attendance.Late: 1}, d.Pie)
	require.GreaterOrEqual(t, len(d.Trend), 1)
	assert.Equal(t, attendance.TrendPoint{Month: "2091-01", Count: 2}, d.Trend[len(d.Trend)-1], "February has no Present rows")

	students, err := dirRepo.ListStudents(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "a-2", students[0].RollNumber)

	entries, err := repo.Find(ctx, attendance.Filter{Date: feb})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, first.ID, entries[0].StudentID)
	assert.Equal(t, attendance.Late, entries[0].Status)
	assert.Equal(t, second.ID, entries[1].StudentID)
	assert.Equal(t, attendance.Absent, entries[1].Status)
	assert.True(t, feb.Equal(entries[1].Date))
	assert.Equal(t, c.ID, entries[1].ClassroomID)
}

func TestRepositoryUpsertUnknownStudent(t *testing.T) {
	db := openTestDB(t)
	repo := attendance.NewRepository(db.Client)
	_, err := repo.Upsert(context.Background(), uuid.New(), time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), attendance.Present)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRepositoryClassroomUnknownTeacher(t *testing.T) {
	db := openTestDB(t)
	dirRepo := directory.NewRepository(db.Client)
	_, err := dirRepo.CreateClassroom(context.Background(), directory.Classroom{
		Name:      "orphan",
		TeacherID: uuid.NullUUID{UUID: uuid.New(), Valid: true},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
