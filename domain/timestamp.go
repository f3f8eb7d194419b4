package domain

import (
	"strings"
	"time"
)

// TimestampLayout is the text form of login/logout times in both stores.
// Lexical order on this layout matches chronological order.
const TimestampLayout = "2006-01-02 15:04:05"

// Truncate drops sub-second precision and normalizes to UTC, so a timestamp
// survives a round trip through either store unchanged.
func Truncate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// FormatTimestamp renders t, or "" for nil.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp parses the stored form. Empty or malformed input yields nil.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.ParseInLocation(TimestampLayout, s, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}
