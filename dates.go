package lucindex

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Resolution is the precision dates are truncated to before indexing.
type Resolution int

const (
	// ResolutionMillisecond keeps full precision.
	ResolutionMillisecond Resolution = iota
	ResolutionSecond
	ResolutionMinute
	ResolutionHour
	ResolutionDay
	ResolutionMonth
	ResolutionYear
)

var resolutionNames = [...]string{
	ResolutionMillisecond: "millisecond",
	ResolutionSecond:      "second",
	ResolutionMinute:      "minute",
	ResolutionHour:        "hour",
	ResolutionDay:         "day",
	ResolutionMonth:       "month",
	ResolutionYear:        "year",
}

func (r Resolution) String() string {
	if r >= 0 && int(r) < len(resolutionNames) {
		return resolutionNames[r]
	}
	return "resolution(" + strconv.Itoa(int(r)) + ")"
}

func ParseResolution(s string) (Resolution, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ResolutionMillisecond, nil
	}
	for r, name := range resolutionNames {
		if s == name {
			return Resolution(r), nil
		}
	}
	return 0, fmt.Errorf("unknown date resolution %q", s)
}

// Truncate resets every component finer than r to its floor value, in t's
// location.
func (r Resolution) Truncate(t time.Time) time.Time {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	ms := t.Nanosecond() / int(time.Millisecond)
	switch r {
	case ResolutionYear:
		mo = time.January
		fallthrough
	case ResolutionMonth:
		d = 1
		fallthrough
	case ResolutionDay:
		h = 0
		fallthrough
	case ResolutionHour:
		mi = 0
		fallthrough
	case ResolutionMinute:
		s = 0
		fallthrough
	case ResolutionSecond:
		ms = 0
	}
	return time.Date(y, mo, d, h, mi, s, ms*int(time.Millisecond), t.Location())
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-01",
	"2006",
	time.RFC1123Z,
	time.RFC1123,
}

// parseDate accepts time.Time, epoch milliseconds (numbers or digit
// strings) and ISO 8601 strings. Strings without a zone are read in loc.
func parseDate(v any, loc *time.Location) (time.Time, error) {
	switch v := v.(type) {
	case time.Time:
		return v.In(loc), nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return v.In(loc), nil
	case string:
		s := strings.TrimSpace(v)
		if isEpochMillis(s) {
			ms, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return time.Time{}, err
			}
			return time.UnixMilli(ms).In(loc), nil
		}
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized date format %q", s)
	case json.Number:
		return parseDate(v.String(), loc)
	default:
		ms, err := toInt64(v)
		if err != nil {
			return time.Time{}, fmt.Errorf("%T is not a date", v)
		}
		return time.UnixMilli(ms).In(loc), nil
	}
}

func isEpochMillis(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if len(s) < 5 {
		// "2024" is a year, not a timestamp
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
