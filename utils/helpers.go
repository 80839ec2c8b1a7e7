package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const dateOnly = "2006-01-02"

// ParseTimeParam accepts RFC3339 timestamps or plain YYYY-MM-DD dates (UTC).
// With endOfDay set, a plain date resolves to the last millisecond of that day.
func ParseTimeParam(raw string, endOfDay bool) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(dateOnly, raw)
	if err != nil {
		return nil, fmt.Errorf("must be RFC3339 (2006-01-02T15:04:05Z) or YYYY-MM-DD")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Millisecond)
	}
	return &t, nil
}

// ParseIntParam parses an optional integer query value within [min, max].
func ParseIntParam(raw string, def, min, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("must be an integer between %d and %d", min, max)
	}
	return n, nil
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
