package utils

import (
	"time"
)

// OpenEnded is rendered in place of a missing event end time
const OpenEnded = "open-ended"

// FormatEventTime formats an event boundary in UTC
func FormatEventTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// FormatEventEnd formats an optional event end, which AWS omits for open-ended events
func FormatEventEnd(t *time.Time) string {
	if t == nil {
		return OpenEnded
	}
	return FormatEventTime(*t)
}

// HoursToDuration converts a whole number of hours to a time.Duration
func HoursToDuration(hours int) time.Duration {
	return time.Duration(hours) * time.Hour
}

// DaysBefore returns the time the given number of days before now
func DaysBefore(now time.Time, days int) time.Time {
	return now.AddDate(0, 0, -days)
}
