package model

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time stored as minutes since midnight.
//
// It is deliberately not clamped to a single day: the wake-time parser maps
// "12pm" to hour 24, and scheduling offsets may push a value below zero.
// Callers that need a same-day instant use At, which wraps into the day of
// the reference time.
type TimeOfDay int64

// TimeOfDayFromHour builds a TimeOfDay at the top of the given hour.
func TimeOfDayFromHour(hour int) TimeOfDay {
	return TimeOfDay(hour * 60)
}

// TimeOfDayFromDuration truncates a duration since midnight to whole minutes.
func TimeOfDayFromDuration(d time.Duration) TimeOfDay {
	return TimeOfDay(d / time.Minute)
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int {
	return int(t / 60)
}

// Minute returns the minute component.
func (t TimeOfDay) Minute() int {
	m := int(t % 60)
	if m < 0 {
		m += 60
	}
	return m
}

// Add shifts the time by d. The result may leave the [0h, 24h) range.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// SinceMidnight returns the value as a duration offset from midnight.
func (t TimeOfDay) SinceMidnight() time.Duration {
	return time.Duration(t) * time.Minute
}

// At anchors the time-of-day on the calendar day of ref, in ref's location.
// Values outside [0h, 24h) wrap into that day.
func (t TimeOfDay) At(ref time.Time) time.Time {
	midnight := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location())
	offset := t.SinceMidnight() % (24 * time.Hour)
	if offset < 0 {
		offset += 24 * time.Hour
	}
	return midnight.Add(offset)
}

// String renders the time as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}
