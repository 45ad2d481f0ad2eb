package shared

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date wire format used across the backoffice.
const DateLayout = "2006-01-02"

// ParseDate parses YYYY-MM-DD into a UTC midnight timestamp.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: %v", ErrInvalidInput, value, err)
	}
	return t, nil
}

// FormatDate renders a date in YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DateOf truncates t to its calendar date in loc, returned as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextDay returns the following calendar date.
func NextDay(date time.Time) time.Time {
	return date.AddDate(0, 0, 1)
}

// PrevDay returns the previous calendar date.
func PrevDay(date time.Time) time.Time {
	return date.AddDate(0, 0, -1)
}

// DaysBetween lists every date in [from, to].
func DaysBetween(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	var days []time.Time
	for d := from; !d.After(to); d = NextDay(d) {
		days = append(days, d)
	}
	return days
}
