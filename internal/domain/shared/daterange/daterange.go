package daterange

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: end date must not be before start date")
	ErrMissingDate  = errors.New("daterange: start and end dates are required")
	ErrInvalidDate  = errors.New("daterange: invalid calendar date")
)

const day = 24 * time.Hour

// Layout is the wire format for calendar dates.
const Layout = time.DateOnly

// DateRange is an inclusive interval of calendar days [Start, End].
// Both ends carry no time-of-day and no timezone: they are midnight UTC.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Date builds a calendar date at midnight UTC.
func Date(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// Normalize drops the time-of-day and the zone, keeping the calendar day the
// value had in its own location.
func Normalize(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return Date(t.Year(), t.Month(), t.Day())
}

// Parse accepts "2006-01-02" and RFC3339 values; RFC3339 values keep the
// calendar day of their own offset.
func Parse(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrMissingDate
	}
	if t, err := time.Parse(Layout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return Normalize(t), nil
}

func New(start, end time.Time) (DateRange, error) {
	dr := DateRange{Start: Normalize(start), End: Normalize(end)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

func (dr DateRange) Validate() error {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return ErrMissingDate
	}
	if dr.End.Before(dr.Start) {
		return ErrInvalidRange
	}
	return nil
}

// Days is ceil((End - Start) / 1 day). A same-day range yields 0.
func (dr DateRange) Days() int {
	return DaysBetween(dr.Start, dr.End)
}

// DaysBetween counts calendar days from start to end after normalizing both.
func DaysBetween(start, end time.Time) int {
	s, e := Normalize(start), Normalize(end)
	if s.IsZero() || e.IsZero() {
		return 0
	}
	return int(math.Ceil(float64(e.Sub(s)) / float64(day)))
}

// Overlaps reports whether two inclusive ranges share at least one day.
// A range ending on day N and another starting on day N overlap.
func (dr DateRange) Overlaps(other DateRange) bool {
	return !dr.Start.After(other.End) && !other.Start.After(dr.End)
}

func (dr DateRange) String() string {
	return dr.Start.Format(Layout) + ".." + dr.End.Format(Layout)
}
