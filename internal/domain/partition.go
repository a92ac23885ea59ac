package domain

import (
	"fmt"
	"regexp"
	"time"
)

var partitionPattern = regexp.MustCompile(`^[0-9]{4}_(0[1-9]|1[0-2])$`)

// PartitionKey returns the YYYY_MM remote partition for t (in UTC).
func PartitionKey(t time.Time) string {
	return t.UTC().Format("2006_01")
}

// ValidPartitionKey reports whether key has the YYYY_MM form.
func ValidPartitionKey(key string) bool {
	return partitionPattern.MatchString(key)
}

// TrailingMonths returns partition keys for the n calendar months ending with
// the month containing now, newest first.
func TrailingMonths(now time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	u := now.UTC()
	first := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, PartitionKey(first.AddDate(0, -i, 0)))
	}
	return keys
}

// ParsePartitionKey returns the first instant of the partition's month.
func ParsePartitionKey(key string) (time.Time, error) {
	if !ValidPartitionKey(key) {
		return time.Time{}, fmt.Errorf("invalid partition key %q (want YYYY_MM)", key)
	}
	return time.Parse("2006_01", key)
}
