package model

import (
	"fmt"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate accepts a calendar date or an RFC3339 timestamp.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// ParseRangeEnd is ParseDate, except a bare calendar date is extended to
// the last instant of that day so ranges stay inclusive.
func ParseRangeEnd(s string) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return t, err
	}
	if _, err := time.Parse(DateLayout, strings.TrimSpace(s)); err == nil {
		return t.Add(24*time.Hour - time.Nanosecond), nil
	}
	return t, nil
}
