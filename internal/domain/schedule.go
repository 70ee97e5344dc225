package domain

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNoValidAvailability = errors.New("staff has no valid availability")
	ErrOutsideSchedule     = errors.New("requested time is outside the staff schedule")
)

// weekdayKeys is indexed by time.Weekday.
var weekdayKeys = [7]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

func WeekdayKey(d time.Weekday) string {
	return weekdayKeys[d]
}

// Schedule is the stored weekly template of a staff member, keyed by
// three-letter weekday. A missing key means the day is closed.
type Schedule map[string]DaySchedule

type DaySchedule struct {
	Closed    bool       `json:"closed"`
	Intervals []Interval `json:"intervals"`
}

type Interval struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	UnitID int64  `json:"unit_id"`
}

type ScheduleError struct {
	Day    string
	Index  int
	Reason string
}

func (e *ScheduleError) Error() string {
	if e.Day == "" {
		return "invalid schedule: " + e.Reason
	}
	if e.Index < 0 {
		return fmt.Sprintf("invalid schedule for %s: %s", e.Day, e.Reason)
	}
	return fmt.Sprintf("invalid schedule for %s interval %d: %s", e.Day, e.Index, e.Reason)
}

type Window struct {
	Start  Clock
	End    Clock
	UnitID int64
}

// WeeklyAvailability is a validated Schedule indexed by time.Weekday with
// each day's windows sorted by start.
type WeeklyAvailability [7][]Window

func ParseSchedule(s Schedule) (WeeklyAvailability, error) {
	var out WeeklyAvailability
	if len(s) == 0 {
		return out, &ScheduleError{Index: -1, Reason: "schedule is empty"}
	}

	known := make(map[string]time.Weekday, len(weekdayKeys))
	for i, k := range weekdayKeys {
		known[k] = time.Weekday(i)
	}
	for key := range s {
		if _, ok := known[key]; !ok {
			return out, &ScheduleError{Day: key, Index: -1, Reason: "unknown weekday"}
		}
	}

	for _, key := range weekdayKeys {
		day, ok := s[key]
		if !ok || day.Closed {
			continue
		}
		windows := make([]Window, 0, len(day.Intervals))
		for i, iv := range day.Intervals {
			start, err := ParseClock(iv.Start)
			if err != nil {
				return out, &ScheduleError{Day: key, Index: i, Reason: "start must be HH:MM"}
			}
			end, err := ParseClock(iv.End)
			if err != nil {
				return out, &ScheduleError{Day: key, Index: i, Reason: "end must be HH:MM"}
			}
			if start >= end {
				return out, &ScheduleError{Day: key, Index: i, Reason: "start must be before end"}
			}
			if iv.UnitID <= 0 {
				return out, &ScheduleError{Day: key, Index: i, Reason: "unit_id is required"}
			}
			windows = append(windows, Window{Start: start, End: end, UnitID: iv.UnitID})
		}
		sort.SliceStable(windows, func(i, j int) bool { return windows[i].Start < windows[j].Start })
		for i := 1; i < len(windows); i++ {
			if Overlaps(windows[i-1].Start, windows[i-1].End, windows[i].Start, windows[i].End) {
				return out, &ScheduleError{Day: key, Index: -1, Reason: "intervals overlap"}
			}
		}
		out[known[key]] = windows
	}
	return out, nil
}

// Fits reports whether [start,end) on date lies entirely inside a single
// window bound to unitID. Adjacent windows are not merged.
func (w WeeklyAvailability) Fits(date time.Time, start, end Clock, unitID int64) bool {
	for _, win := range w[date.Weekday()] {
		if win.UnitID == unitID && start >= win.Start && end <= win.End {
			return true
		}
	}
	return false
}

func WindowFitsSchedule(s Schedule, date time.Time, start, end Clock, unitID int64) error {
	avail, err := ParseSchedule(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoValidAvailability, err)
	}
	if !avail.Fits(date, start, end, unitID) {
		return ErrOutsideSchedule
	}
	return nil
}
