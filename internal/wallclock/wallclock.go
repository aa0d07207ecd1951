// Package wallclock converts between the calendar/clock fields a user picks in
// a date-time input and the floating timestamp strings exchanged with the
// events API. No conversion ever goes through a time zone, so the digits the
// user picked are the digits sent and the digits shown after a round trip.
package wallclock

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// WireLayout is the floating timestamp format sent to the API.
	WireLayout = "2006-01-02T15:04:05"
	// InputLayout is the value format of an HTML datetime-local input.
	InputLayout = "2006-01-02T15:04"

	MinYear = 1900
	MaxYear = 9999
)

var ErrInvalid = errors.New("invalid date-time")

// parse layouts, tried in order. Fractional seconds are accepted by time.Parse
// after the seconds field even though the layouts do not name them.
var parseLayouts = []string{
	time.RFC3339,
	WireLayout,
	InputLayout,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// DateTime is a wall-clock value at minute granularity with no zone attached.
type DateTime struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
}

// Clock is the time source shared by the picker lower bound and the
// future-date validation.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the local system time.
var SystemClock Clock = ClockFunc(time.Now)

// FromTime takes the fields of t as shown in t's own location.
func FromTime(t time.Time) DateTime {
	return DateTime{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
	}
}

// MinSelectable returns the current wall-clock minute, the earliest value a
// picker should offer.
func MinSelectable(c Clock) DateTime {
	return FromTime(c.Now())
}

// Validate reports whether every field is in range.
func (d DateTime) Validate() error {
	if d.Year < MinYear || d.Year > MaxYear {
		return fmt.Errorf("%w: year %d out of range %d-%d", ErrInvalid, d.Year, MinYear, MaxYear)
	}
	if d.Month < time.January || d.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalid, d.Month)
	}
	if d.Day < 1 || d.Day > daysIn(d.Year, d.Month) {
		return fmt.Errorf("%w: day %d", ErrInvalid, d.Day)
	}
	if d.Hour < 0 || d.Hour > 23 {
		return fmt.Errorf("%w: hour %d", ErrInvalid, d.Hour)
	}
	if d.Minute < 0 || d.Minute > 59 {
		return fmt.Errorf("%w: minute %d", ErrInvalid, d.Minute)
	}
	return nil
}

func (d DateTime) IsZero() bool {
	return d == DateTime{}
}

// Wire renders the floating wire form, e.g. 2025-03-10T14:30:00.
func (d DateTime) Wire() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:00", d.Year, int(d.Month), d.Day, d.Hour, d.Minute)
}

// Input renders the datetime-local input form, e.g. 2025-03-10T14:30.
func (d DateTime) Input() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", d.Year, int(d.Month), d.Day, d.Hour, d.Minute)
}

func (d DateTime) String() string {
	return d.Input()
}

// In places the wall-clock fields in loc. Used only for comparisons against
// the clock; never for formatting.
func (d DateTime) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, d.Hour, d.Minute, 0, 0, loc)
}

// Before orders two values field by field.
func (d DateTime) Before(o DateTime) bool {
	return d.Wire() < o.Wire()
}

// ToWire is the picker-to-API direction.
func ToWire(d DateTime) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	return d.Wire(), nil
}

// FromWire is the API-to-picker direction. A trailing offset is ignored rather
// than applied: the fields are read as written. Seconds are dropped.
func FromWire(s string) (DateTime, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DateTime{}, fmt.Errorf("%w: empty value", ErrInvalid)
	}
	for _, layout := range parseLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		d := FromTime(t)
		if err := d.Validate(); err != nil {
			return DateTime{}, err
		}
		return d, nil
	}
	return DateTime{}, fmt.Errorf("%w: %q", ErrInvalid, s)
}

// ParseInput reads a datetime-local input value.
func ParseInput(s string) (DateTime, error) {
	return FromWire(s)
}

func (d DateTime) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Wire())
}

func (d *DateTime) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = DateTime{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date-time must be a string: %w", err)
	}
	v, err := FromWire(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Value stores the wire form so that text ordering matches time ordering.
func (d DateTime) Value() (driver.Value, error) {
	return d.Wire(), nil
}

func (d *DateTime) Scan(src any) error {
	switch v := src.(type) {
	case string:
		parsed, err := FromWire(v)
		if err != nil {
			return err
		}
		*d = parsed
	case []byte:
		return d.Scan(string(v))
	case time.Time:
		*d = FromTime(v)
	default:
		return fmt.Errorf("scan date-time: unsupported type %T", src)
	}
	return nil
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
