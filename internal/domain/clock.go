package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts used on the wire and in cache keys.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// FormatDate renders t as YYYY-MM-DD in its own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatClock renders t as zero-padded HH:MM.
func FormatClock(t time.Time) string {
	return t.Format(ClockLayout)
}

// ValidateDate checks a YYYY-MM-DD string.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return nil
}

// ValidateClock checks a zero-padded HH:MM string.
func ValidateClock(s string) error {
	if _, err := time.Parse(ClockLayout, s); err != nil || len(s) != len(ClockLayout) {
		return fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return nil
}

// AddDays shifts a YYYY-MM-DD date by n days. Invalid input is returned unchanged.
func AddDays(date string, n int) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return FormatDate(t.AddDate(0, 0, n))
}

// ToMinutes converts "HH:MM" to minutes since midnight. Empty or
// unparsable parts count as zero.
func ToMinutes(clock string) int {
	if clock == "" {
		clock = "00:00"
	}
	h, m, _ := strings.Cut(clock, ":")
	hours, _ := strconv.Atoi(strings.TrimSpace(h))
	minutes, _ := strconv.Atoi(strings.TrimSpace(m))
	return hours*60 + minutes
}
