package valueobject

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Date layout constants. The legacy store and the UI exchange dates as
// DD/MM/YYYY; the FatturaPA tract and the canonical persisted form are ISO.
const (
	LayoutItalian = "02/01/2006"
	LayoutISO     = "2006-01-02"
)

// Date is an immutable calendar date (no time-of-day, no location).
// It parses both persisted formats and always emits the canonical ISO form
// when stored, converting to the Italian form only at presentation edges.
type Date struct {
	t time.Time
}

// NewDate creates a Date from year, month and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// Today returns the current calendar date
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate accepts both DD/MM/YYYY and YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, errors.New("empty date")
	}
	layout := LayoutISO
	if strings.Contains(s, "/") {
		layout = LayoutItalian
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// IsZero returns true for the zero Date
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// Time returns the underlying midnight-UTC time
func (d Date) Time() time.Time {
	return d.t
}

// Before reports whether d is before other
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// After reports whether d is after other
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Equal reports whether d and other are the same day
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// AddDays returns the date n days later
func (d Date) AddDays(n int) Date {
	return DateOf(d.t.AddDate(0, 0, n))
}

// String returns the canonical ISO form
func (d Date) String() string {
	return d.t.Format(LayoutISO)
}

// Italian returns the DD/MM/YYYY presentation form
func (d Date) Italian() string {
	return d.t.Format(LayoutItalian)
}

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer: dates persist in the ISO form
func (d Date) Value() (driver.Value, error) {
	return d.String(), nil
}

// Scan implements sql.Scanner, accepting both persisted layouts
func (d *Date) Scan(value interface{}) error {
	if value == nil {
		*d = Date{}
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return errors.New("failed to scan Date: unsupported type")
	}
}
