package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// dayFirstLayout accepts D/M/YYYY with or without zero padding.
const dayFirstLayout = "2/1/2006"

var (
	ErrInvalidDate  = errors.New("date must be YYYY-MM-DD or DD/MM/YYYY")
	ErrInvalidClock = errors.New("time must be HH:MM in 24-hour format")
)

// Clock is a time of day in minutes since midnight.
type Clock int

func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidClock
	}
	h, ok := twoDigits(s[0], s[1])
	if !ok || h > 23 {
		return 0, ErrInvalidClock
	}
	m, ok := twoDigits(s[3], s[4])
	if !ok || m > 59 {
		return 0, ErrInvalidClock
	}
	return Clock(h*60 + m), nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ParseDate accepts ISO dates and day-first dates and returns midnight UTC.
// Calendar-invalid dates such as 31/02/2026 are rejected.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	layout := DateLayout
	if strings.Contains(s, "/") {
		layout = dayFirstLayout
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	if t.Year() < 1000 {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect.
func Overlaps(s1, e1, s2, e2 Clock) bool {
	return s1 < e2 && s2 < e1
}
