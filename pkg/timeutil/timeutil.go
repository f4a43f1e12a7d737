// Package timeutil provides timezone-aware date helpers for the school calendar.
// Attendance is recorded per calendar day, so "today" and "the future" are always
// evaluated in the school's timezone, never in the server's.
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// DefaultTimezone is the school's IANA timezone when none is configured.
const DefaultTimezone = "America/Sao_Paulo"

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// DefaultReportDays is the attendance report window when no range is given.
const DefaultReportDays = 30

var (
	mu       sync.RWMutex
	location = mustLoad(DefaultTimezone)
	clock    = time.Now
)

// mustLoad falls back to a fixed UTC-3 zone when tzdata is missing from the image.
func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, -3*60*60)
	}
	return loc
}

// SetTimezone changes the school timezone. Call once at startup.
func SetTimezone(name string) error {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", name, err)
	}
	mu.Lock()
	location = loc
	mu.Unlock()
	return nil
}

// SetClock overrides the time source. Tests use it to pin "now".
func SetClock(now func() time.Time) (restore func()) {
	mu.Lock()
	prev := clock
	clock = now
	mu.Unlock()
	return func() {
		mu.Lock()
		clock = prev
		mu.Unlock()
	}
}

// Location returns the school timezone.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return location
}

// Now returns the current time in the school timezone.
func Now() time.Time {
	mu.RLock()
	now := clock
	mu.RUnlock()
	return now().In(Location())
}

// Date creates midnight of the given day in the school timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Location())
}

// StartOfDay returns the start of the day (00:00:00) in the school timezone.
func StartOfDay(t time.Time) time.Time {
	local := t.In(Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Location())
}

// Today returns midnight of the current school day.
func Today() time.Time {
	return StartOfDay(Now())
}

// IsFutureDay reports whether the day of t comes after today.
func IsFutureDay(t time.Time) bool {
	return StartOfDay(t).After(Today())
}

// IsSameDay checks if two times fall on the same school day.
func IsSameDay(t1, t2 time.Time) bool {
	return StartOfDay(t1).Equal(StartOfDay(t2))
}

// LastNDays returns the inclusive day range ending today and spanning n days back.
func LastNDays(n int) (from, to time.Time) {
	to = Today()
	return to.AddDate(0, 0, -n), to
}

// ParseDate parses a YYYY-MM-DD string as a day in the school timezone.
func ParseDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", value, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD in the school timezone.
func FormatDate(t time.Time) string {
	return t.In(Location()).Format(DateLayout)
}
