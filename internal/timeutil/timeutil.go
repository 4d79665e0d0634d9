package timeutil

import (
	"errors"
	"strings"
	"time"
	_ "time/tzdata"
)

const DateLayout = "2006-01-02"

var (
	ErrInvalidDate     = errors.New("invalid date format")
	ErrInvalidDateTime = errors.New("invalid datetime format")
	ErrInvalidTimeZone = errors.New("invalid time zone")
)

// wall-clock layouts accepted from datetime-local inputs and API callers
var wallClockLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
}

// LoadLocation resolves an IANA zone name. An empty name yields fallback.
func LoadLocation(name string, fallback *time.Location) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, ErrInvalidTimeZone
	}
	return loc, nil
}

// DayRange returns the UTC instants bounding calendar day date in loc. Both
// bounds are inclusive; end is the last millisecond of the local day. The
// offset is resolved separately for each bound, so days that contain a
// daylight-saving transition are 23 or 25 hours long.
func DayRange(date string, loc *time.Location) (start, end time.Time, err error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	y, m, day := d.Date()
	start = time.Date(y, m, day, 0, 0, 0, 0, loc)
	end = time.Date(y, m, day+1, 0, 0, 0, 0, loc).Add(-time.Millisecond)
	return start.UTC(), end.UTC(), nil
}

// WallClockToUTC interprets value as a wall-clock time in loc and returns the
// UTC instant. Values carrying an explicit offset (RFC 3339) keep it.
func WallClockToUTC(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDateTime
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range wallClockLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, ErrInvalidDateTime
}

// FormatDate renders the calendar date of t as seen in t's own location.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}
