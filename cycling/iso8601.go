// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/senseyeio/duration"
)

// Nominal lengths used only for interval comparison: calendar durations
// (years, months) have no exact length, so ordering uses a fixed estimate.
const (
	nominalSecondsPerDay   = 86400
	nominalSecondsPerMonth = 30 * nominalSecondsPerDay
	nominalSecondsPerYear  = 365 * nominalSecondsPerDay
)

// Bail-out for pathological recurrences: walking more steps than this in
// a single query means the expression is degenerate.
const maxSeqWalk = 100000

// isoDur is a signed ISO 8601 duration. Parsing of the P/T grammar is
// delegated to github.com/senseyeio/duration; sign handling, arithmetic,
// and canonical rendering are ours.
type isoDur struct {
	y, mo, w, d int
	h, m, s     int
}

func parseISODur(value string) (isoDur, error) {
	v := value
	sign := 1
	if strings.HasPrefix(v, "-") {
		sign = -1
		v = v[1:]
	} else if strings.HasPrefix(v, "+") {
		v = v[1:]
	}
	d, err := duration.ParseISO8601(v)
	if err != nil {
		return isoDur{}, IntervalParsingError{TypeISO8601, value}
	}
	return isoDur{
		y:  sign * d.Y,
		mo: sign * d.M,
		w:  sign * d.W,
		d:  sign * d.D,
		h:  sign * d.TH,
		m:  sign * d.TM,
		s:  sign * d.TS,
	}, nil
}

func (d isoDur) isZero() bool {
	return d == isoDur{}
}

func (d isoDur) neg() isoDur {
	return d.mul(-1)
}

func (d isoDur) mul(f int) isoDur {
	return isoDur{d.y * f, d.mo * f, d.w * f, d.d * f, d.h * f, d.m * f, d.s * f}
}

func (d isoDur) add(o isoDur) isoDur {
	return isoDur{d.y + o.y, d.mo + o.mo, d.w + o.w, d.d + o.d,
		d.h + o.h, d.m + o.m, d.s + o.s}
}

// hasCalendarUnits reports whether the duration has year or month
// components, i.e. no exact length.
func (d isoDur) hasCalendarUnits() bool {
	return d.y != 0 || d.mo != 0
}

func (d isoDur) nominalSeconds() int64 {
	return int64(d.y)*nominalSecondsPerYear +
		int64(d.mo)*nominalSecondsPerMonth +
		int64(d.w*7+d.d)*nominalSecondsPerDay +
		int64(d.h)*3600 + int64(d.m)*60 + int64(d.s)
}

// exact returns the duration as a time.Duration. Only meaningful when
// hasCalendarUnits() is false.
func (d isoDur) exact() time.Duration {
	return time.Duration(d.w*7+d.d)*24*time.Hour +
		time.Duration(d.h)*time.Hour +
		time.Duration(d.m)*time.Minute +
		time.Duration(d.s)*time.Second
}

// shift applies the duration (multiplied by sign) to t.
func (d isoDur) shift(t time.Time, sign int) time.Time {
	if d.y != 0 || d.mo != 0 || d.w != 0 || d.d != 0 {
		t = t.AddDate(sign*d.y, sign*d.mo, sign*(d.w*7+d.d))
	}
	return t.Add(time.Duration(sign) * (time.Duration(d.h)*time.Hour +
		time.Duration(d.m)*time.Minute + time.Duration(d.s)*time.Second))
}

// String renders the canonical form. The null duration is "P0Y"; a fully
// non-positive duration gets one leading sign. Mixed-sign components (a
// possible result of interval arithmetic) keep per-component signs.
func (d isoDur) String() string {
	if d.isZero() {
		return "P0Y"
	}
	allNonPos := d.y <= 0 && d.mo <= 0 && d.w <= 0 && d.d <= 0 &&
		d.h <= 0 && d.m <= 0 && d.s <= 0
	prefix := ""
	if allNonPos {
		prefix = "-"
		d = d.neg()
	}
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteString("P")
	writePart := func(n int, unit string) {
		if n != 0 {
			fmt.Fprintf(&b, "%d%s", n, unit)
		}
	}
	writePart(d.y, "Y")
	writePart(d.mo, "M")
	writePart(d.w, "W")
	writePart(d.d, "D")
	if d.h != 0 || d.m != 0 || d.s != 0 {
		b.WriteString("T")
		writePart(d.h, "H")
		writePart(d.m, "M")
		writePart(d.s, "S")
	}
	return b.String()
}

// durFromSeconds decomposes an exact number of seconds into days, hours,
// minutes, and seconds.
func durFromSeconds(secs int64) isoDur {
	sign := 1
	if secs < 0 {
		sign = -1
		secs = -secs
	}
	d := isoDur{
		d: int(secs / nominalSecondsPerDay),
		h: int(secs % nominalSecondsPerDay / 3600),
		m: int(secs % 3600 / 60),
		s: int(secs % 60),
	}
	return d.mul(sign)
}

// ISO8601Point is a single point in an ISO 8601 date-time sequence.
type ISO8601Point struct {
	value string
	t     time.Time
	cal   *Calendar
}

func newISO8601Point(s string, cal *Calendar) (ISO8601Point, error) {
	t, err := cal.parsePoint(normalizePointString(s))
	if err != nil {
		return ISO8601Point{}, err
	}
	return iso8601PointOf(t, cal), nil
}

func iso8601PointOf(t time.Time, cal *Calendar) ISO8601Point {
	t = t.In(cal.loc)
	return ISO8601Point{value: cal.dump(t), t: t, cal: cal}
}

func (p ISO8601Point) Type() string    { return TypeISO8601 }
func (p ISO8601Point) SortKey() int    { return sortKeyISO8601 }
func (p ISO8601Point) String() string  { return p.value }
func (p ISO8601Point) Time() time.Time { return p.t }

func (p ISO8601Point) add(other Interval) (Point, error) {
	return iso8601PointOf(other.(ISO8601Interval).d.shift(p.t, 1), p.cal), nil
}

func (p ISO8601Point) subPoint(other Point) (Interval, error) {
	diff := p.t.Sub(other.(ISO8601Point).t)
	return iso8601IntervalOf(durFromSeconds(int64(diff / time.Second))), nil
}

func (p ISO8601Point) subInterval(other Interval) (Point, error) {
	return iso8601PointOf(other.(ISO8601Interval).d.shift(p.t, -1), p.cal), nil
}

func (p ISO8601Point) cmp(other Point) int {
	o := other.(ISO8601Point)
	switch {
	case p.t.Before(o.t):
		return -1
	case p.t.After(o.t):
		return 1
	}
	return 0
}

// ISO8601Interval is the interval between points in an ISO 8601 date-time
// sequence.
type ISO8601Interval struct {
	value string
	d     isoDur
}

// NewISO8601Interval parses and standardises an ISO 8601 duration string,
// with an optional leading sign.
func NewISO8601Interval(value string) (ISO8601Interval, error) {
	d, err := parseISODur(value)
	if err != nil {
		return ISO8601Interval{}, err
	}
	return iso8601IntervalOf(d), nil
}

func iso8601IntervalOf(d isoDur) ISO8601Interval {
	return ISO8601Interval{value: d.String(), d: d}
}

// ISO8601IntervalNull returns the identity for ISO 8601 point addition.
func ISO8601IntervalNull() ISO8601Interval { return iso8601IntervalOf(isoDur{}) }

func (iv ISO8601Interval) Type() string   { return TypeISO8601 }
func (iv ISO8601Interval) SortKey() int   { return sortKeyISO8601 }
func (iv ISO8601Interval) String() string { return iv.value }
func (iv ISO8601Interval) IsNull() bool   { return iv.d.isZero() }

func (iv ISO8601Interval) Abs() Interval {
	if iv.d.nominalSeconds() < 0 {
		return iso8601IntervalOf(iv.d.neg())
	}
	return iv
}

func (iv ISO8601Interval) Mul(factor int) Interval {
	return iso8601IntervalOf(iv.d.mul(factor))
}

func (iv ISO8601Interval) add(other Interval) (Interval, error) {
	return iso8601IntervalOf(iv.d.add(other.(ISO8601Interval).d)), nil
}

func (iv ISO8601Interval) sub(other Interval) (Interval, error) {
	return iso8601IntervalOf(iv.d.add(other.(ISO8601Interval).d.neg())), nil
}

func (iv ISO8601Interval) cmp(other Interval) int {
	a := iv.d.nominalSeconds()
	b := other.(ISO8601Interval).d.nominalSeconds()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ISO8601Sequence is a sequence of date-time points separated by an
// interval, possibly bounded and possibly carrying exclusions.
//
// The query caches below make sequence methods non-reentrant: a sequence
// must be owned by a single scheduling loop, like the rest of this core.
type ISO8601Sequence struct {
	expr       string
	cal        *Calendar
	ctxStart   *ISO8601Point
	ctxStop    *ISO8601Point
	start      *ISO8601Point
	stop       *ISO8601Point
	step       *ISO8601Interval // nil for a one-off sequence
	exclusions *Exclusion

	maxCached  int
	validCache map[string]bool
	recent     []time.Time // recent on-sequence instants, newest last
}

// NewISO8601Sequence parses a recurrence expression against start/stop
// context point strings (either may be empty) using cal.
func NewISO8601Sequence(expr, ctxStartStr, ctxStopStr string, cal *Calendar) (*ISO8601Sequence, error) {
	s := &ISO8601Sequence{
		expr:       expr,
		cal:        cal,
		maxCached:  100,
		validCache: make(map[string]bool),
	}
	if ctxStartStr != "" {
		p, err := newISO8601Point(ctxStartStr, cal)
		if err != nil {
			return nil, err
		}
		s.ctxStart = &p
	}
	if ctxStopStr != "" {
		p, err := newISO8601Point(ctxStopStr, cal)
		if err != nil {
			return nil, err
		}
		s.ctxStop = &p
	}

	expression, exclPoints, err := parseExclusion(expr)
	if err != nil {
		return nil, err
	}

	var parts recurrenceParts
	if f, ok := parseTruncated(expression); ok {
		// A bare truncated point is a recurrence with its truncation
		// period: "T03" repeats daily at 03:00.
		parts = recurrenceParts{format: 3, start: expression, intv: f.period().String()}
	} else if parts, ok = matchRecurrence(expression); !ok {
		return nil, SequenceParsingError{expr, "unrecognized recurrence"}
	}
	reps := parts.reps

	startRequired := parts.format == 1 || parts.format == 3
	endRequired := parts.format == 1 || parts.format == 4

	s.start, err = s.resolvePoint(parts.start, s.ctxStart, startRequired)
	if err != nil {
		return nil, err
	}
	s.stop, err = s.resolvePoint(parts.stop, s.ctxStop, endRequired)
	if err != nil {
		return nil, err
	}
	var step *ISO8601Interval
	if parts.intv != "" {
		iv, err := NewISO8601Interval(parts.intv)
		if err != nil {
			return nil, err
		}
		step = &iv
	}

	switch parts.format {
	case 3:
		// REPEAT/START/PERIOD
		if step == nil || (reps != nil && *reps <= 1) {
			s.step = nil
			s.stop = s.start
		} else {
			s.step = step
			if reps != nil {
				p := iso8601PointOf(step.d.mul(*reps-1).shift(s.start.t, 1), cal)
				s.stop = &p
			} else if s.ctxStop != nil {
				t, ok := lastStepAtOrBefore(s.start.t, step.d, s.ctxStop.t)
				if !ok {
					return nil, SequenceParsingError{expr, "degenerate recurrence"}
				}
				p := iso8601PointOf(t, cal)
				s.stop = &p
			}
		}
	case 1:
		// REPEAT/START/STOP
		if *reps == 1 {
			s.step = nil
			s.stop = s.start
		} else {
			secs := int64(s.stop.t.Sub(s.start.t)/time.Second) / int64(*reps-1)
			iv := iso8601IntervalOf(durFromSeconds(secs))
			s.step = &iv
		}
	case 4:
		// REPEAT/PERIOD/STOP
		if reps != nil {
			if *reps <= 1 {
				s.start = s.stop
				s.step = nil
			} else {
				s.step = step
				p := iso8601PointOf(step.d.mul(*reps-1).shift(s.stop.t, -1), cal)
				s.start = &p
			}
		} else {
			s.step = step
			if s.ctxStart == nil {
				return nil, MissingContextPointError{expr}
			}
			t, ok := firstStepAtOrAfter(s.stop.t, step.d, s.ctxStart.t)
			if !ok {
				return nil, SequenceParsingError{expr, "degenerate recurrence"}
			}
			p := iso8601PointOf(t, cal)
			s.start = &p
		}
	}

	if s.step != nil && s.step.d.nominalSeconds() < 0 {
		return nil, SequenceParsingError{expr, "negative intervals not supported"}
	}
	if s.step != nil && s.step.d.isZero() {
		return nil, SequenceParsingError{expr, "zero-length interval"}
	}

	if s.step != nil && s.start != nil && s.ctxStart != nil && s.start.t.Before(s.ctxStart.t) {
		t, ok := firstStepAtOrAfter(s.start.t, s.step.d, s.ctxStart.t)
		if !ok {
			return nil, SequenceParsingError{expr, "degenerate recurrence"}
		}
		p := iso8601PointOf(t, cal)
		s.start = &p
	}
	if s.step != nil && s.stop != nil && s.ctxStop != nil && s.stop.t.After(s.ctxStop.t) {
		t, ok := lastStepAtOrBefore(s.start.t, s.step.d, s.ctxStop.t)
		if !ok {
			return nil, SequenceParsingError{expr, "degenerate recurrence"}
		}
		p := iso8601PointOf(t, cal)
		s.stop = &p
	}

	if len(exclPoints) > 0 {
		excl, err := s.buildExclusions(exclPoints)
		if err != nil {
			return nil, err
		}
		s.exclusions = excl
	}
	return s, nil
}

// resolvePoint resolves a recurrence start/end token: empty (use context),
// "^"/"$" context anchors with optional offsets, signed offsets from the
// context, truncated points (first match at or after the context), or
// absolute points.
func (s *ISO8601Sequence) resolvePoint(expr string, context *ISO8601Point, required bool) (*ISO8601Point, error) {
	if expr == "" {
		if context == nil {
			if required {
				return nil, MissingContextPointError{s.expr}
			}
			return nil, nil
		}
		p := *context
		return &p, nil
	}
	anchor := context
	switch {
	case strings.HasPrefix(expr, "^"):
		anchor = s.ctxStart
		expr = expr[1:]
	case strings.HasPrefix(expr, "$"):
		anchor = s.ctxStop
		expr = expr[1:]
	}
	if expr == "" {
		if anchor == nil {
			return nil, MissingContextPointError{s.expr}
		}
		p := *anchor
		return &p, nil
	}
	if strings.HasPrefix(expr, "+") || strings.HasPrefix(expr, "-") {
		if d, err := parseISODur(expr); err == nil {
			if anchor == nil {
				return nil, MissingContextPointError{s.expr}
			}
			p := iso8601PointOf(d.shift(anchor.t, 1), s.cal)
			return &p, nil
		}
	}
	if f, ok := parseTruncated(expr); ok {
		if anchor == nil {
			return nil, MissingContextPointError{s.expr}
		}
		p := iso8601PointOf(f.firstAtOrAfter(anchor.t), s.cal)
		return &p, nil
	}
	p, err := newISO8601Point(expr, s.cal)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *ISO8601Sequence) buildExclusions(items []string) (*Exclusion, error) {
	startStr, stopStr := "", ""
	if s.start != nil {
		startStr = s.start.String()
	} else if s.ctxStart != nil {
		startStr = s.ctxStart.String()
	}
	if s.stop != nil {
		stopStr = s.stop.String()
	} else if s.ctxStop != nil {
		stopStr = s.ctxStop.String()
	}
	excl := &Exclusion{}
	for _, item := range items {
		// Sequence exclusions first: "T03" excludes a daily sub-sequence,
		// not a single point.
		if seq, err := NewISO8601Sequence(item, startStr, stopStr, s.cal); err == nil {
			excl.sequences = append(excl.sequences, seq)
			continue
		}
		p, err := newISO8601Point(item, s.cal)
		if err != nil {
			return nil, SequenceParsingError{item, "invalid exclusion"}
		}
		if !excl.Contains(p) {
			excl.points = append(excl.points, p)
		}
	}
	return excl, nil
}

// firstStepAtOrAfter returns the first instant on the grid anchored at
// anchor with the given step that is >= bound. Exact steps use modular
// arithmetic; calendar steps walk.
func firstStepAtOrAfter(anchor time.Time, step isoDur, bound time.Time) (time.Time, bool) {
	if !step.hasCalendarUnits() {
		exact := step.exact()
		if exact <= 0 {
			return time.Time{}, false
		}
		mod := bound.Sub(anchor) % exact
		if mod < 0 {
			mod += exact
		}
		t := bound.Add(-mod)
		if t.Before(bound) {
			t = t.Add(exact)
		}
		return t, true
	}
	t := anchor
	for i := 0; t.Before(bound); i++ {
		if i > maxSeqWalk {
			return time.Time{}, false
		}
		t = step.shift(t, 1)
	}
	for i := 0; ; i++ {
		if i > maxSeqWalk {
			return time.Time{}, false
		}
		prev := step.shift(t, -1)
		if prev.Before(bound) {
			break
		}
		t = prev
	}
	return t, true
}

// lastStepAtOrBefore returns the last instant on the grid anchored at
// anchor with the given step that is <= bound.
func lastStepAtOrBefore(anchor time.Time, step isoDur, bound time.Time) (time.Time, bool) {
	t, ok := firstStepAtOrAfter(anchor, step, bound)
	if !ok {
		return time.Time{}, false
	}
	if t.After(bound) {
		t = step.shift(t, -1)
	}
	return t, true
}

func (s *ISO8601Sequence) Type() string { return TypeISO8601 }
func (s *ISO8601Sequence) SortKey() int { return sortKeyISO8601 }

func (s *ISO8601Sequence) String() string {
	str := fmt.Sprintf("R/%s/", s.start)
	if s.step == nil {
		str = fmt.Sprintf("R1/%s/", s.start)
	} else {
		str += s.step.String()
	}
	if s.stop != nil {
		str = fmt.Sprintf("%s/%s", str, s.stop)
	}
	if s.exclusions != nil {
		str += "!" + s.exclusions.String()
	}
	return str
}

func (s *ISO8601Sequence) Interval() Interval {
	if s.step == nil {
		return nil
	}
	return *s.step
}

func (s *ISO8601Sequence) StartPoint() Point {
	if s.start == nil {
		return nil
	}
	if s.exclusions.Contains(*s.start) {
		return s.NextPointOnSequence(*s.start)
	}
	return *s.start
}

func (s *ISO8601Sequence) StopPoint() Point {
	if s.stop == nil {
		return nil
	}
	if s.exclusions.Contains(*s.stop) {
		return s.PrevPoint(*s.stop)
	}
	return *s.stop
}

func (s *ISO8601Sequence) IsOnSequence(p Point) bool {
	ip, ok := p.(ISO8601Point)
	if !ok || s.start == nil {
		return false
	}
	if s.exclusions.Contains(ip) {
		return false
	}
	if s.step == nil {
		return ip.t.Equal(s.start.t)
	}
	if !s.step.d.hasCalendarUnits() {
		return ip.t.Sub(s.start.t)%s.step.d.exact() == 0
	}
	// Calendar step: walk from the nearest cached instant <= p, else from
	// the sequence start.
	t := s.start.t
	for i := len(s.recent) - 1; i >= 0; i-- {
		if !s.recent[i].After(ip.t) && s.recent[i].After(t) {
			t = s.recent[i]
			break
		}
	}
	for i := 0; t.Before(ip.t); i++ {
		if i > maxSeqWalk {
			return false
		}
		t = s.step.d.shift(t, 1)
	}
	if t.Equal(ip.t) {
		s.cacheRecent(t)
		return true
	}
	return false
}

func (s *ISO8601Sequence) cacheRecent(t time.Time) {
	if len(s.recent) >= s.maxCached {
		s.recent = s.recent[1:]
	}
	s.recent = append(s.recent, t)
}

func (s *ISO8601Sequence) IsValid(p Point) bool {
	ip, ok := p.(ISO8601Point)
	if !ok {
		return false
	}
	if v, ok := s.validCache[ip.value]; ok {
		return v
	}
	v := s.IsOnSequence(ip) && s.inBounds(ip.t)
	if len(s.validCache) >= s.maxCached {
		// drop an arbitrary entry to bound the cache
		for k := range s.validCache {
			delete(s.validCache, k)
			break
		}
	}
	s.validCache[ip.value] = v
	return v
}

func (s *ISO8601Sequence) inBounds(t time.Time) bool {
	return s.start != nil && !t.Before(s.start.t) &&
		(s.stop == nil || !t.After(s.stop.t))
}

func (s *ISO8601Sequence) pointInBounds(t time.Time) Point {
	if s.inBounds(t) {
		return iso8601PointOf(t, s.cal)
	}
	return nil
}

func (s *ISO8601Sequence) PrevPoint(p Point) Point {
	ip, ok := p.(ISO8601Point)
	if !ok || s.step == nil || s.start == nil {
		return nil
	}
	t, ok2 := lastStepAtOrBefore(s.start.t, s.step.d, ip.t.Add(-time.Second))
	if !ok2 {
		return nil
	}
	ret := s.pointInBounds(t)
	if ret != nil && s.exclusions.Contains(ret) {
		return s.PrevPoint(ret)
	}
	return ret
}

func (s *ISO8601Sequence) NearestPrevPoint(p Point) Point {
	if s.IsOnSequence(p) {
		return s.PrevPoint(p)
	}
	ip, ok := p.(ISO8601Point)
	if !ok || s.start == nil {
		return nil
	}
	var prev Point
	for sp := s.pointInBounds(s.start.t); sp != nil; sp = s.NextPoint(sp) {
		if PointCmp(sp, ip) > 0 {
			break
		}
		prev = sp
	}
	if prev != nil && s.exclusions.Contains(prev) {
		return s.NearestPrevPoint(prev)
	}
	return prev
}

func (s *ISO8601Sequence) NextPoint(p Point) Point {
	ip, ok := p.(ISO8601Point)
	if !ok || s.start == nil {
		return nil
	}
	if s.step == nil {
		if ip.t.Before(s.start.t) {
			return *s.start
		}
		return nil
	}
	t, ok2 := firstStepAtOrAfter(s.start.t, s.step.d, ip.t.Add(time.Second))
	if !ok2 {
		return nil
	}
	ret := s.pointInBounds(t)
	if ret != nil && s.exclusions.Contains(ret) {
		return s.NextPoint(ret)
	}
	return ret
}

func (s *ISO8601Sequence) NextPointOnSequence(p Point) Point {
	ip, ok := p.(ISO8601Point)
	if !ok || s.step == nil {
		return nil
	}
	ret := s.pointInBounds(s.step.d.shift(ip.t, 1))
	if ret != nil && s.exclusions.Contains(ret) {
		return s.NextPointOnSequence(ret)
	}
	return ret
}

func (s *ISO8601Sequence) FirstPoint(p Point) Point {
	ip, ok := p.(ISO8601Point)
	if !ok || s.start == nil {
		return nil
	}
	var ret Point
	if !ip.t.After(s.start.t) {
		ret = s.pointInBounds(s.start.t)
	} else if s.step != nil {
		t, ok2 := firstStepAtOrAfter(s.start.t, s.step.d, ip.t)
		if !ok2 {
			return nil
		}
		ret = s.pointInBounds(t)
	}
	if ret != nil && s.exclusions.Contains(ret) {
		return s.NextPointOnSequence(ret)
	}
	return ret
}

// Equal reports whether other generates the same set of points: same
// start, stop, step, and exclusions, however either recurrence was
// written ("PT1H" vs "^/PT1H", say).
func (s *ISO8601Sequence) Equal(other Sequence) bool {
	o, ok := other.(*ISO8601Sequence)
	if !ok {
		return false
	}
	if (s.step == nil) != (o.step == nil) {
		return false
	}
	if s.step != nil && s.step.value != o.step.value {
		return false
	}
	return isoPtrEqual(s.start, o.start) &&
		isoPtrEqual(s.stop, o.stop) &&
		s.exclusions.Equal(o.exclusions)
}

func isoPtrEqual(a, b *ISO8601Point) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.t.Equal(b.t)
}

var recSignedDurChunk = regexp.MustCompile(`[+-]?P[^+-]*`)

// iso8601PointRelative applies an offset expression to a base point.
// Regular offsets are a single signed duration. Irregular offsets mix an
// absolute or truncated leading part with one or more signed duration
// chunks ("2000+P1D", "T00-PT6H", "-PT6H+P1D") applied in order.
func iso8601PointRelative(expr string, base ISO8601Point, cal *Calendar) (Point, error) {
	if d, err := parseISODur(expr); err == nil {
		return iso8601PointOf(d.shift(base.t, 1), cal), nil
	}
	locs := recSignedDurChunk.FindAllStringIndex(expr, -1)
	head := expr
	if len(locs) > 0 {
		head = expr[:locs[0][0]]
	}
	t := base.t
	if head != "" {
		if f, ok := parseTruncated(head); ok {
			t = f.fill(base.t)
		} else {
			var err error
			t, err = cal.parsePoint(normalizePointString(head))
			if err != nil {
				return nil, err
			}
		}
	} else if len(locs) == 0 {
		return nil, IntervalParsingError{TypeISO8601, expr}
	}
	for _, loc := range locs {
		d, err := parseISODur(expr[loc[0]:loc[1]])
		if err != nil {
			return nil, err
		}
		t = d.shift(t, 1)
	}
	return iso8601PointOf(t, cal), nil
}

// iso8601IsOffsetAbsolute reports whether the offset string is actually a
// point ("2000") rather than a true interval ("+P1D").
func iso8601IsOffsetAbsolute(offset string) bool {
	_, err := parseISODur(offset)
	return err != nil
}
