package domain

import (
	"fmt"
	"time"
)

// FormatDuration renders d as "{hours}h {minutes}m", truncated to the minute.
// Negative durations render as zero.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Minute)
	return fmt.Sprintf("%dh %dm", total/60, total%60)
}

// SessionDuration is the elapsed time from checkIn to now.
func SessionDuration(checkIn, now time.Time) string {
	return FormatDuration(now.Sub(checkIn))
}
