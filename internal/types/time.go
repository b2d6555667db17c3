package types

import (
	"strings"
	"time"
)

// ParseTimestamp parses an ISO-8601 instant as used by the broker feed and
// the trades API, e.g. "2026-02-17T08:39:53.889Z". A trailing "Z" is treated
// as UTC; fractional seconds are optional. Returns nil when the value is
// empty or unparseable.
func ParseTimestamp(ts string) *time.Time {
	if ts == "" {
		return nil
	}
	ts = strings.TrimSuffix(ts, "Z")

	t, err := time.Parse("2006-01-02T15:04:05.999999999", ts)
	if err != nil {
		// Fallback for timestamps without fractional seconds.
		t, err = time.Parse("2006-01-02T15:04:05", ts)
		if err != nil {
			return nil
		}
	}
	t = t.UTC()
	return &t
}
