package types

import (
	"fmt"
	"time"
)

// Timestamp layouts accepted when parsing stored values. Writes always use
// RFC3339; the zoneless form covers documents written by sibling tooling.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// sessionIDLayout is the YYYYMMDD-HHMMSS session identifier format.
const sessionIDLayout = "20060102-150405"

// FormatTimestamp renders t in the on-disk ISO-8601 form.
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// ParseTimestamp parses a stored ISO-8601 timestamp.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q is not ISO-8601", ErrInvalidTimestamp, s)
}

// DurationSeconds returns the floor of (terminal - started) in whole
// seconds, clamped at zero.
func DurationSeconds(started, terminal time.Time) int {
	d := terminal.Sub(started)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// NewSessionID derives a session identifier from the given time.
func NewSessionID(t time.Time) string {
	return t.Format(sessionIDLayout)
}

// SessionDate extracts the calendar date encoded in a session identifier.
func SessionDate(sessionID string) (time.Time, error) {
	t, err := time.Parse(sessionIDLayout, sessionID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: session id %q", ErrInvalidTimestamp, sessionID)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
