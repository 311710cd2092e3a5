package core

import (
	"fmt"
	"time"
)

// TimestampLayout is the wire format for every stored timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

const dateKeyLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	dateKeyLayout,
}

// ParseTimestamp accepts RFC 3339 timestamps as well as zone-less forms.
// Zone-less values, including bare dates, are read in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, s)
		} else {
			t, err = time.ParseInLocation(layout, s, loc)
		}
		if err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// FormatTimestamp renders t in UTC with millisecond precision.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// DateKey returns the local calendar day of t as "YYYY-MM-DD".
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(dateKeyLayout)
}

// DateKeyOf parses s and returns its calendar day in loc.
func DateKeyOf(s string, loc *time.Location) (string, error) {
	t, err := ParseTimestamp(s, loc)
	if err != nil {
		return "", err
	}
	return DateKey(t, loc), nil
}

// StartOfDay returns midnight of t's day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of t's day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}
