// Package nuclear implements Nuclear Mode: a daily time window during which
// blocking cannot be turned off and the blocklist can only grow.
package nuclear

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// ErrInvalidTime is returned for times not in strict HH:MM form.
var ErrInvalidTime = errors.New("invalid time, expected HH:MM (00:00-23:59)")

var clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Clock is a wall-clock time of day with minute granularity.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses a strict two-digit HH:MM string.
func ParseClock(s string) (Clock, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return Clock{}, fmt.Errorf("%q: %w", s, ErrInvalidTime)
	}
	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	return Clock{Hour: h, Minute: min}, nil
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// Minutes returns minutes since midnight.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Schedule is the daily Nuclear Mode window. Start after End wraps midnight.
type Schedule struct {
	Start Clock
	End   Clock
}

// ParseSchedule validates both times. Either one failing refuses the schedule.
func ParseSchedule(start, end string) (Schedule, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Schedule{}, fmt.Errorf("start time: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return Schedule{}, fmt.Errorf("end time: %w", err)
	}
	return Schedule{Start: s, End: e}, nil
}

// Contains reports whether t falls inside the window.
func (s Schedule) Contains(t time.Time) bool {
	return IsWithinWindow(ClockOf(t), s.Start, s.End)
}

func (s Schedule) String() string {
	return s.Start.String() + "-" + s.End.String()
}

// IsWithinWindow reports whether now lies in [start, end), wrapping midnight
// when start >= end.
func IsWithinWindow(now, start, end Clock) bool {
	n, s, e := now.Minutes(), start.Minutes(), end.Minutes()
	if s < e {
		return s <= n && n < e
	}
	return n >= s || n < e
}
