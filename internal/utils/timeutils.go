package utils

import (
	"fmt"
	"time"
)

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// FormatMillis renders a millisecond quantity for human-readable output,
// switching to seconds above one second.
func FormatMillis(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.0fms", ms)
}

// MillisBetween converts a pair of timestamps into a millisecond delta.
func MillisBetween(start, end time.Time) float64 {
	if end.Before(start) {
		start, end = end, start
	}
	return float64(end.Sub(start)) / float64(time.Millisecond)
}
