package parse

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DateLayout is the canonical slot date format.
	DateLayout = "2006-01-02"
	// ClockLayout is the canonical slot time-of-day format.
	ClockLayout = "15:04"
)

// Clock is a time of day expressed in minutes after midnight.
type Clock int

// ParseClock parses an "HH:MM" string. "24:00" is accepted as end of day.
func ParseClock(raw string) (Clock, error) {
	s := strings.TrimSpace(raw)
	if s == "24:00" {
		return Clock(24 * 60), nil
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", raw)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// Add returns c shifted by d minutes.
func (c Clock) Add(minutes int) Clock {
	return c + Clock(minutes)
}

// String formats c as "HH:MM".
func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate parses a "YYYY-MM-DD" string and returns it in canonical form.
func ParseDate(raw string) (string, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want YYYY-MM-DD", raw)
	}
	return t.Format(DateLayout), nil
}
