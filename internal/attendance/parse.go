package attendance

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"rollcall/internal/apperr"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperr.Invalid("invalid date %q, use YYYY-MM-DD", raw)
	}
	return t, nil
}

// ParseMonth parses a month number between 1 and 12.
func ParseMonth(raw string) (int, error) {
	m, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || m < 1 || m > 12 {
		return 0, apperr.Invalid("invalid month %q", raw)
	}
	return m, nil
}

// ParseYear parses a four digit year.
func ParseYear(raw string) (int, error) {
	y, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || y < 1 || y > 9999 {
		return 0, apperr.Invalid("invalid year %q", raw)
	}
	return y, nil
}

// ParseID parses a UUID, naming the field in the error.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Invalid("invalid %s id %q", field, raw)
	}
	return id, nil
}

// ParseMarks converts raw student id to status code pairs as submitted by a form.
func ParseMarks(raw map[string]string) (map[uuid.UUID]Status, error) {
	marks := make(map[uuid.UUID]Status, len(raw))
	for k, v := range raw {
		id, err := ParseID("student", k)
		if err != nil {
			return nil, err
		}
		st, err := ParseStatus(v)
		if err != nil {
			return nil, err
		}
		marks[id] = st
	}
	return marks, nil
}
