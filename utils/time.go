// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// OrUTCNow returns t in UTC, or the current UTC time when t is the zero value
func OrUTCNow(t time.Time) time.Time {
	if t.IsZero() {
		return UTCNow()
	}
	return t.UTC()
}

// FormatTimestamp renders a timestamp the way the API and the redis adapter store it
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTimestamp is the inverse of FormatTimestamp
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
