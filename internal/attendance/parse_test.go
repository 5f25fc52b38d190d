package attendance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/apperr"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), got)

	for _, raw := range []string{"", "2024-13-01", "01/03/2024", "2024-02-30"} {
		_, err := ParseDate(raw)
		assert.ErrorIs(t, err, apperr.ErrValidation, raw)
	}
}

func TestParseMonthYear(t *testing.T) {
	m, err := ParseMonth("4")
	require.NoError(t, err)
	assert.Equal(t, 4, m)

	for _, raw := range []string{"0", "13", "april", ""} {
		_, err := ParseMonth(raw)
		assert.ErrorIs(t, err, apperr.ErrValidation, raw)
	}

	y, err := ParseYear("2024")
	require.NoError(t, err)
	assert.Equal(t, 2024, y)

	_, err = ParseYear("10000")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	in := time.Date(2024, time.April, 5, 23, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2024, time.April, 5, 0, 0, 0, 0, time.UTC), Day(in))
}

func TestParseMarks(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	marks, err := ParseMarks(map[string]string{a.String(): "P", b.String(): "l"})
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]Status{a: Present, b: Late}, marks)

	_, err = ParseMarks(map[string]string{"7": "P"})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ParseMarks(map[string]string{a.String(): "X"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
