package attendance

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"rollcall/internal/apperr"
)

// Status is the closed set of attendance marks. The zero value is not a
// valid status.
type Status uint8

const (
	Present Status = iota + 1
	Absent
	Late
)

// Statuses lists every valid status in display order.
var Statuses = [...]Status{Present, Absent, Late}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case Present, Absent, Late:
		return true
	default:
		return false
	}
}

// Code returns the single-letter storage code.
func (s Status) Code() string {
	switch s {
	case Present:
		return "P"
	case Absent:
		return "A"
	case Late:
		return "L"
	default:
		return ""
	}
}

func (s Status) String() string {
	switch s {
	case Present:
		return "Present"
	case Absent:
		return "Absent"
	case Late:
		return "Late"
	default:
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
}

// ParseStatus accepts the storage codes P, A and L or the full names, in any case.
func ParseStatus(raw string) (Status, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "P", "PRESENT":
		return Present, nil
	case "A", "ABSENT":
		return Absent, nil
	case "L", "LATE":
		return Late, nil
	default:
		return 0, apperr.Invalid("unknown status %q, want one of P, A, L", raw)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("marshal %v: invalid status", s)
	}
	return []byte(s.Code()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Value stores the status as its single-letter code.
func (s Status) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("store %v: invalid status", s)
	}
	return s.Code(), nil
}

// Scan reads a single-letter code from the database.
func (s *Status) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("scan status: unsupported type %T", src)
	}
}
