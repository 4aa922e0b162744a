package config

import (
	"fmt"
	"time"
)

// ParseTimeGrammar interprets the --since/--until time grammar: either
// a relative duration N[smhd] (resolved against now), or an absolute
// ISO-8601 timestamp. Returns milliseconds since epoch, matching the
// log entry timestamp unit.
func ParseTimeGrammar(s string, now time.Time) (int64, error) {
	if seconds, _, err := ParseRetentionSeconds(s); err == nil {
		return now.Add(-time.Duration(seconds) * time.Second).UnixMilli(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("config: %q is neither N[smhd] nor an ISO-8601 timestamp: %w", s, err)
	}
	return t.UnixMilli(), nil
}
