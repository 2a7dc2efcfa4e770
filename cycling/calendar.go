// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// A Calendar holds the workflow-setup-specific pieces of the ISO 8601
// domain: the assumed time zone and the canonical dump format. One
// Calendar is built per Cycler and shared by every ISO 8601 point,
// interval, and sequence it creates.
type Calendar struct {
	loc   *time.Location
	label string // zone designator used in canonical point strings
}

// NewCalendar builds a calendar for the given time zone. An empty zone
// means UTC if utcMode, else the process-local zone. Explicit zones may be
// "Z" or a numeric offset such as "+05:30", "+0530", or "-08".
func NewCalendar(timeZone string, utcMode bool) (*Calendar, error) {
	if timeZone == "" {
		if utcMode {
			return &Calendar{loc: time.UTC, label: "Z"}, nil
		}
		now := time.Now()
		_, offset := now.Zone()
		return &Calendar{loc: now.Location(), label: zoneLabel(offset)}, nil
	}
	if timeZone == "Z" {
		return &Calendar{loc: time.UTC, label: "Z"}, nil
	}
	offset, err := parseZoneOffset(timeZone)
	if err != nil {
		return nil, err
	}
	return &Calendar{
		loc:   time.FixedZone(zoneLabel(offset), offset),
		label: zoneLabel(offset),
	}, nil
}

// zoneLabel renders a zone offset in seconds as a reduced designator:
// "Z", "+05", or "+0530" when minutes are significant.
func zoneLabel(offset int) string {
	if offset == 0 {
		return "Z"
	}
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	h := offset / 3600
	m := (offset % 3600) / 60
	if m == 0 {
		return fmt.Sprintf("%s%02d", sign, h)
	}
	return fmt.Sprintf("%s%02d%02d", sign, h, m)
}

var recZoneOffset = regexp.MustCompile(`^([+-])(\d{2})(?::?(\d{2}))?$`)

func parseZoneOffset(s string) (int, error) {
	m := recZoneOffset.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time zone: %q", s)
	}
	h, _ := strconv.Atoi(m[2])
	min := 0
	if m[3] != "" {
		min, _ = strconv.Atoi(m[3])
	}
	offset := h*3600 + min*60
	if m[1] == "-" {
		offset = -offset
	}
	return offset, nil
}

// dump renders t in the canonical CCYYMMDDThhmm[ss] + zone format. Seconds
// appear only when non-zero, so points on whole minutes stay in the short
// form the rest of the system treats as canonical.
func (c *Calendar) dump(t time.Time) string {
	t = t.In(c.loc)
	if t.Second() != 0 {
		return t.Format("20060102T150405") + c.label
	}
	return t.Format("20060102T1504") + c.label
}

// Full or partial (but not truncated) ISO 8601 point, with or without
// separators: 2000, 2000-01, 20000101, 2000-01-01T06:00, 20000101T0600Z,
// 2000-01-01T06:00:30+05:30.
var recISOPoint = regexp.MustCompile(
	`^(\d{4})(?:-?(\d{2})(?:-?(\d{2}))?)?` +
		`(?:T(\d{2})(?::?(\d{2})(?::?(\d{2}))?)?)?` +
		`(Z|[+-]\d{2}(?::?\d{2})?)?$`)

// parsePoint parses a strict (non-truncated) point string into a concrete
// time in the calendar's zone.
func (c *Calendar) parsePoint(s string) (time.Time, error) {
	if s == "now" {
		return time.Now().In(c.loc).Truncate(time.Minute), nil
	}
	m := recISOPoint.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, PointParsingError{TypeISO8601, s, ""}
	}
	year, _ := strconv.Atoi(m[1])
	month, day := 1, 1
	if m[2] != "" {
		month, _ = strconv.Atoi(m[2])
	}
	if m[3] != "" {
		day, _ = strconv.Atoi(m[3])
	}
	hour, minute, sec := 0, 0, 0
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
	}
	if m[5] != "" {
		minute, _ = strconv.Atoi(m[5])
	}
	if m[6] != "" {
		sec, _ = strconv.Atoi(m[6])
	}
	loc := c.loc
	if m[7] == "Z" {
		loc = time.UTC
	} else if m[7] != "" {
		offset, err := parseZoneOffset(m[7])
		if err != nil {
			return time.Time{}, PointParsingError{TypeISO8601, s, err.Error()}
		}
		loc = time.FixedZone(zoneLabel(offset), offset)
	}
	if month < 1 || month > 12 || day < 1 || day > 31 ||
		hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, PointParsingError{TypeISO8601, s, "component out of range"}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	// time.Date normalizes out-of-range days (e.g. Feb 30); reject them.
	if t.Day() != day || t.Month() != time.Month(month) {
		return time.Time{}, PointParsingError{TypeISO8601, s, "no such date"}
	}
	return t.In(c.loc), nil
}

// truncatedFields is a truncated point such as "T00", "T0600", or
// "--01-19": date-time components with everything off the front missing.
type truncatedFields struct {
	month, day           *int
	hour, minute, second *int
}

var (
	// Thh[mm[ss]] with optional colons
	recTruncTime = regexp.MustCompile(`^T(\d{2})(?::?(\d{2})(?::?(\d{2}))?)?$`)
	// --MM[-DD][Thh[mm]]
	recTruncMonthDay = regexp.MustCompile(
		`^--(\d{2})(?:-?(\d{2}))?(?:T(\d{2})(?::?(\d{2}))?)?$`)
)

// parseTruncated parses a truncated point string, or returns ok=false if
// the string is not a truncated form.
func parseTruncated(s string) (truncatedFields, bool) {
	if m := recTruncTime.FindStringSubmatch(s); m != nil {
		f := truncatedFields{}
		f.hour = atoiPtr(m[1])
		f.minute = atoiPtr(m[2])
		f.second = atoiPtr(m[3])
		return f, true
	}
	if m := recTruncMonthDay.FindStringSubmatch(s); m != nil {
		f := truncatedFields{}
		f.month = atoiPtr(m[1])
		f.day = atoiPtr(m[2])
		f.hour = atoiPtr(m[3])
		f.minute = atoiPtr(m[4])
		return f, true
	}
	return truncatedFields{}, false
}

func atoiPtr(s string) *int {
	if s == "" {
		return nil
	}
	n, _ := strconv.Atoi(s)
	return &n
}

// isTruncatedPointString reports whether s looks like a truncated point.
func isTruncatedPointString(s string) bool {
	_, ok := parseTruncated(s)
	return ok
}

// fill completes the truncated point using base for the missing leading
// components. Trailing components below the given ones are zeroed.
func (f truncatedFields) fill(base time.Time) time.Time {
	year := base.Year()
	month := int(base.Month())
	day := base.Day()
	hour, minute, sec := 0, 0, 0
	if f.month != nil {
		month = *f.month
		day = 1
	}
	if f.day != nil {
		day = *f.day
	}
	if f.hour != nil {
		hour = *f.hour
	}
	if f.minute != nil {
		minute = *f.minute
	}
	if f.second != nil {
		sec = *f.second
	}
	if f.month == nil && f.hour == nil {
		// nothing specified at all; keep base time
		return base
	}
	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, base.Location())
}

// period returns the implied recurrence period of the truncation: daily
// for time-of-day truncations, yearly for month/day truncations.
func (f truncatedFields) period() isoDur {
	if f.month != nil {
		return isoDur{y: 1}
	}
	return isoDur{d: 1}
}

// firstAtOrAfter returns the first instant matching the truncated fields
// at or after base.
func (f truncatedFields) firstAtOrAfter(base time.Time) time.Time {
	t := f.fill(base)
	for t.Before(base) {
		t = f.period().shift(t, 1)
	}
	return t
}

// normalizePointString strips spaces so "2000-01-01 T06" style sloppiness
// does not leak into parse errors.
func normalizePointString(s string) string {
	return strings.ReplaceAll(s, " ", "")
}
