package resolver

import (
	"fmt"
	"strings"
	"time"
)

// Fields probed for an event time, most specific first.
var timestampFields = []string{"timestamp", "modified_at", "updated_at", "last_modified_at", "created_at"}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ExtractTimestamp pulls the event time out of a payload. It probes the
// known timestamp fields in order and commits to the first one holding a
// non-empty string; empty strings are treated as absent. Anything
// unparseable yields the zero time, so a malformed payload loses
// timestamp comparisons instead of failing them.
func ExtractTimestamp(p Payload) time.Time {
	for _, field := range timestampFields {
		raw, ok := p[field]
		if !ok {
			continue
		}

		value, ok := raw.(string)
		if !ok {
			return time.Time{}
		}
		if value == "" {
			continue
		}

		ts, err := parseTimestamp(value)
		if err != nil {
			return time.Time{}
		}

		return ts
	}

	return time.Time{}
}

// parseTimestamp понимает ISO-8601; суффикс Z читается как смещение +00:00.
func parseTimestamp(value string) (time.Time, error) {
	if strings.HasSuffix(value, "Z") {
		value = strings.TrimSuffix(value, "Z") + "+00:00"
	}

	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported timestamp format: %q", value)
}
