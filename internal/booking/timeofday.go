package booking

import (
	"fmt"
	"time"
)

// TimeOfDay is a clock time expressed as minutes since midnight. Appointment
// times are stored and compared in this form so that slot math (rest gaps,
// cutoffs) never has to care about dates or zones.
type TimeOfDay int

// ParseTimeOfDay parses "15:04".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for compile-time constants in tests and
// policy definitions.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Clock formats the time for user-facing messages, e.g. "02:30 PM".
func (t TimeOfDay) Clock() string {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC).Format("03:04 PM")
}

// MinutesFrom returns the absolute distance to o in minutes.
func (t TimeOfDay) MinutesFrom(o TimeOfDay) int {
	d := int(t) - int(o)
	if d < 0 {
		d = -d
	}
	return d
}

// ParseDate parses "2006-01-02" into a civil date (midnight UTC).
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return d, nil
}

// DateOf truncates a timestamp to its civil date in the given location.
func DateOf(ts time.Time, loc *time.Location) time.Time {
	y, m, d := ts.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// At combines a civil date and a TimeOfDay into an instant in loc.
func At(date time.Time, t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// SameDate reports whether two civil dates are the same day.
func SameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
