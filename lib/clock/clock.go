package clock

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-date format used for challenge windows,
// the same form the /start_challenge command takes its arguments in.
const DateLayout = "2006-01-02"

func Now() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05Z")
}

// Today returns the current UTC date truncated to midnight.
func Today() time.Time {
	return DateOnly(time.Now().UTC())
}

// DateOnly strips the time-of-day part, keeping a UTC calendar date.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("not a valid date: %s", s)
	}
	return t, nil
}

// FormatDate renders a time as a YYYY-MM-DD calendar date.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
