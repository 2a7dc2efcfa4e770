// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"strings"
)

// Options are the workflow-level settings a Cycler needs at construction.
type Options struct {
	TimeZone string // explicit cycle point time zone ("Z", "+05:30"), or ""
	UTCMode  bool   // with no explicit zone, assume UTC instead of local
}

// A Cycler binds one cycling mode ("integer", "iso8601", "nocycle", or a
// gregorian alias) plus its workflow context, and constructs all points,
// intervals, and sequences for that mode. One Cycler is built per workflow
// and threaded to whoever parses cycling expressions; there is no global
// registry.
type Cycler struct {
	mode string
	cal  *Calendar // ISO 8601 mode only
}

// NewCycler returns a cycler for the given mode. An empty mode means
// ISO 8601 cycling; "gregorian" is an accepted alias for it. Alternate
// calendars ("360day" etc.) are not supported.
func NewCycler(mode string, o Options) (*Cycler, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case TypeInteger:
		return &Cycler{mode: TypeInteger}, nil
	case TypeNocycle:
		return &Cycler{mode: TypeNocycle}, nil
	case "", TypeISO8601, "gregorian":
		cal, err := NewCalendar(o.TimeZone, o.UTCMode)
		if err != nil {
			return nil, err
		}
		return &Cycler{mode: TypeISO8601, cal: cal}, nil
	}
	return nil, UnknownModeError{mode}
}

// Mode returns the resolved cycling mode.
func (c *Cycler) Mode() string { return c.mode }

// Point parses and standardises a point string.
func (c *Cycler) Point(value string) (Point, error) {
	switch c.mode {
	case TypeInteger:
		return NewIntegerPoint(value)
	case TypeISO8601:
		return newISO8601Point(value, c.cal)
	}
	return NewNocyclePoint(value)
}

// Interval parses and standardises an interval string.
func (c *Cycler) Interval(value string) (Interval, error) {
	switch c.mode {
	case TypeInteger:
		return NewIntegerInterval(value)
	case TypeISO8601:
		return NewISO8601Interval(value)
	}
	return NewNocycleInterval(value)
}

// NullInterval returns the mode's identity interval.
func (c *Cycler) NullInterval() Interval {
	switch c.mode {
	case TypeInteger:
		return IntegerIntervalNull()
	case TypeISO8601:
		return ISO8601IntervalNull()
	}
	return NocycleIntervalNull()
}

// Sequence parses a recurrence expression against workflow start/stop
// context point strings (either may be empty).
func (c *Cycler) Sequence(expr, ctxStart, ctxStop string) (Sequence, error) {
	switch c.mode {
	case TypeInteger:
		return NewIntegerSequence(expr, ctxStart, ctxStop)
	case TypeISO8601:
		return NewISO8601Sequence(expr, ctxStart, ctxStop, c.cal)
	}
	return NewNocycleSequence(expr)
}

// PointRelative resolves an offset expression against a base point:
// regular interval offsets plus the mode's irregular forms.
func (c *Cycler) PointRelative(expr string, base Point) (Point, error) {
	switch c.mode {
	case TypeInteger:
		return integerPointRelative(expr, base)
	case TypeISO8601:
		bp, ok := base.(ISO8601Point)
		if !ok {
			return nil, CyclerTypeError{TypeISO8601, expr, base.Type(), base.String()}
		}
		return iso8601PointRelative(expr, bp, c.cal)
	}
	// Non-cycling points take no offsets.
	if expr != "" {
		return nil, IntervalParsingError{TypeNocycle, expr}
	}
	return base, nil
}

// IsOffsetAbsolute reports whether an offset string in this mode is an
// absolute point rather than an interval from the child's point.
func (c *Cycler) IsOffsetAbsolute(offset string) bool {
	switch c.mode {
	case TypeInteger:
		return integerIsOffsetAbsolute(offset)
	case TypeISO8601:
		return iso8601IsOffsetAbsolute(offset)
	}
	return false
}

// StandardisePointString parses value and re-renders it canonically. With
// allowTruncated, ISO 8601 truncated points ("T00", "--01-19") pass
// through unchanged, since they cannot be completed without a context.
func (c *Cycler) StandardisePointString(value string, allowTruncated bool) (string, error) {
	if c.mode == TypeISO8601 && allowTruncated && isTruncatedPointString(value) {
		return value, nil
	}
	p, err := c.Point(value)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}
