// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"fmt"
	"regexp"
	"strconv"
)

var (
	recIntegerRelativePoint = regexp.MustCompile(`^[-+]P\d+$`)
	recIntegerInterval      = regexp.MustCompile(`^[-+]?P\d+$`)
)

// IntegerPoint is a single point in an integer sequence.
type IntegerPoint struct {
	value string
	n     int
}

// NewIntegerPoint parses and standardises an integer point string.
func NewIntegerPoint(value string) (IntegerPoint, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return IntegerPoint{}, PointParsingError{TypeInteger, value, ""}
	}
	return integerPointOf(n), nil
}

func integerPointOf(n int) IntegerPoint {
	return IntegerPoint{value: strconv.Itoa(n), n: n}
}

func (p IntegerPoint) Type() string   { return TypeInteger }
func (p IntegerPoint) SortKey() int   { return sortKeyInteger }
func (p IntegerPoint) String() string { return p.value }
func (p IntegerPoint) Int() int       { return p.n }

func (p IntegerPoint) add(other Interval) (Point, error) {
	return integerPointOf(p.n + other.(IntegerInterval).n), nil
}

func (p IntegerPoint) subPoint(other Point) (Interval, error) {
	return integerIntervalOf(p.n - other.(IntegerPoint).n), nil
}

func (p IntegerPoint) subInterval(other Interval) (Point, error) {
	return integerPointOf(p.n - other.(IntegerInterval).n), nil
}

func (p IntegerPoint) cmp(other Point) int {
	return cmpInt(p.n, other.(IntegerPoint).n)
}

// IntegerInterval is the interval between points in an integer sequence.
type IntegerInterval struct {
	value string
	n     int
}

// NewIntegerInterval parses an integer interval string such as "P2" or
// "-P1".
func NewIntegerInterval(value string) (IntegerInterval, error) {
	if !recIntegerInterval.MatchString(value) {
		return IntegerInterval{}, IntervalParsingError{TypeInteger, value}
	}
	n, err := strconv.Atoi(stripIntervalSyntax(value))
	if err != nil {
		return IntegerInterval{}, IntervalParsingError{TypeInteger, value}
	}
	return integerIntervalOf(n), nil
}

func integerIntervalOf(n int) IntegerInterval {
	value := "P" + strconv.Itoa(n)
	if n < 0 {
		value = "-P" + strconv.Itoa(-n)
	}
	return IntegerInterval{value: value, n: n}
}

// stripIntervalSyntax turns "-P1"/"+P2"/"P3" into "-1"/"+2"/"3".
func stripIntervalSyntax(value string) string {
	out := make([]byte, 0, len(value))
	for i := 0; i < len(value); i++ {
		if value[i] != 'P' {
			out = append(out, value[i])
		}
	}
	return string(out)
}

// IntegerIntervalNull returns the identity for integer point addition.
func IntegerIntervalNull() IntegerInterval { return integerIntervalOf(0) }

func (iv IntegerInterval) Type() string   { return TypeInteger }
func (iv IntegerInterval) SortKey() int   { return sortKeyInteger }
func (iv IntegerInterval) String() string { return iv.value }
func (iv IntegerInterval) Int() int       { return iv.n }
func (iv IntegerInterval) IsNull() bool   { return iv.n == 0 }

func (iv IntegerInterval) Abs() Interval {
	if iv.n < 0 {
		return integerIntervalOf(-iv.n)
	}
	return iv
}

func (iv IntegerInterval) Mul(factor int) Interval {
	return integerIntervalOf(iv.n * factor)
}

func (iv IntegerInterval) add(other Interval) (Interval, error) {
	return integerIntervalOf(iv.n + other.(IntegerInterval).n), nil
}

func (iv IntegerInterval) sub(other Interval) (Interval, error) {
	return integerIntervalOf(iv.n - other.(IntegerInterval).n), nil
}

func (iv IntegerInterval) cmp(other Interval) int {
	return cmpInt(iv.n, other.(IntegerInterval).n)
}

// IntegerSequence is integer points at a regular interval, possibly
// bounded and possibly carrying exclusions.
type IntegerSequence struct {
	expr       string
	ctxStart   IntegerPoint
	ctxStop    *IntegerPoint
	start      *IntegerPoint
	stop       *IntegerPoint
	step       *IntegerInterval // nil for a one-off sequence
	exclusions *Exclusion
}

// NewIntegerSequence parses a recurrence expression against start/stop
// context point strings. The context bounds the sequence; computed start
// and stop points out of bounds become nil.
func NewIntegerSequence(expr, ctxStartStr, ctxStopStr string) (*IntegerSequence, error) {
	s := &IntegerSequence{expr: expr}

	ctxStart, err := NewIntegerPoint(ctxStartStr)
	if err != nil {
		return nil, err
	}
	s.ctxStart = ctxStart
	if ctxStopStr != "" {
		p, err := NewIntegerPoint(ctxStopStr)
		if err != nil {
			return nil, err
		}
		s.ctxStop = &p
	}

	expression, exclPoints, err := parseExclusion(expr)
	if err != nil {
		return nil, err
	}

	parts, ok := matchRecurrence(expression)
	if !ok {
		return nil, SequenceParsingError{expr, "unrecognized integer recurrence"}
	}
	reps := parts.reps

	startRequired := parts.format == 1 || parts.format == 3
	endRequired := parts.format == 1 || parts.format == 4

	s.start, err = integerPointFromExpr(parts.start, &s.ctxStart, startRequired)
	if err != nil {
		return nil, err
	}
	s.stop, err = integerPointFromExpr(parts.stop, s.ctxStop, endRequired)
	if err != nil {
		return nil, err
	}
	var step *IntegerInterval
	if parts.intv != "" {
		iv, err := NewIntegerInterval(parts.intv)
		if err != nil {
			return nil, err
		}
		step = &iv
	}
	if step != nil && step.n == 0 {
		return nil, SequenceParsingError{expr, "zero-length interval"}
	}

	switch parts.format {
	case 3:
		// REPEAT/START/PERIOD
		if step == nil || (reps != nil && *reps <= 1) {
			// one-off
			s.step = nil
			s.stop = s.start
		} else {
			s.step = step
			if reps != nil {
				p := integerPointOf(s.start.n + s.step.n*(*reps-1))
				s.stop = &p
			} else if s.ctxStop != nil {
				// stop at the last on-sequence point <= context stop
				p := integerPointOf(lastAtOrBefore(s.start.n, s.step.n, s.ctxStop.n))
				s.stop = &p
			}
		}
	case 1:
		// REPEAT/START/STOP
		if *reps == 1 {
			// one-off: ignore stop point
			s.step = nil
			s.stop = s.start
		} else {
			iv := integerIntervalOf((s.stop.n - s.start.n) / (*reps - 1))
			s.step = &iv
		}
	case 4:
		// REPEAT/PERIOD/STOP
		if reps != nil {
			if *reps <= 1 {
				// one-off
				s.start = s.stop
				s.step = nil
			} else {
				s.step = step
				p := integerPointOf(s.stop.n - s.step.n*(*reps-1))
				s.start = &p
			}
		} else {
			s.step = step
			// start at the first on-sequence point >= context start,
			// counting backwards from the stop point
			p := integerPointOf(firstAtOrAfter(s.stop.n, s.step.n, s.ctxStart.n))
			s.start = &p
		}
	}

	if s.step != nil && s.step.n < 0 {
		return nil, SequenceParsingError{expr, "negative intervals not supported"}
	}
	if s.step != nil && s.step.n == 0 {
		return nil, SequenceParsingError{expr, "zero-length interval"}
	}

	if s.step != nil && s.start != nil && s.start.n < s.ctxStart.n {
		// start from first on-sequence point >= context start
		p := integerPointOf(firstAtOrAfter(s.start.n, s.step.n, s.ctxStart.n))
		s.start = &p
	}
	if s.step != nil && s.stop != nil && s.ctxStop != nil && s.stop.n > s.ctxStop.n {
		// stop at last on-sequence point <= context stop
		p := integerPointOf(lastAtOrBefore(s.start.n, s.step.n, s.ctxStop.n))
		s.stop = &p
	}

	if len(exclPoints) > 0 {
		excl, err := buildIntegerExclusions(exclPoints, s.start, s.stop)
		if err != nil {
			return nil, err
		}
		s.exclusions = excl
	}
	return s, nil
}

// firstAtOrAfter returns the first point of the sequence anchored at
// anchor with the given step that is >= bound.
func firstAtOrAfter(anchor, step, bound int) int {
	return bound + pymod(anchor-bound, step)
}

// lastAtOrBefore returns the last point of the sequence anchored at
// anchor with the given step that is <= bound.
func lastAtOrBefore(anchor, step, bound int) int {
	return bound - pymod(bound-anchor, step)
}

// pymod is the mathematical modulus: the result takes the sign of b.
func pymod(a, b int) int {
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m
}

// integerPointFromExpr resolves an absolute ("4") or context-relative
// ("+P2") point expression. A nil result means no point (unbounded).
func integerPointFromExpr(expr string, context *IntegerPoint, required bool) (*IntegerPoint, error) {
	if expr == "" && context == nil {
		if required {
			return nil, MissingContextPointError{expr}
		}
		return nil, nil
	}
	if expr == "" {
		p := *context
		return &p, nil
	}
	if recIntegerRelativePoint.MatchString(expr) {
		if context == nil {
			return nil, MissingContextPointError{expr}
		}
		iv, err := NewIntegerInterval(expr)
		if err != nil {
			return nil, err
		}
		p := integerPointOf(context.n + iv.n)
		return &p, nil
	}
	p, err := NewIntegerPoint(expr)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func buildIntegerExclusions(exclPoints []string, start, stop *IntegerPoint) (*Exclusion, error) {
	excl := &Exclusion{}
	for _, item := range exclPoints {
		if p, err := NewIntegerPoint(item); err == nil {
			if !excl.Contains(p) {
				excl.points = append(excl.points, p)
			}
			continue
		}
		startStr := ""
		if start != nil {
			startStr = start.String()
		}
		stopStr := ""
		if stop != nil {
			stopStr = stop.String()
		}
		seq, err := NewIntegerSequence(item, startStr, stopStr)
		if err != nil {
			return nil, SequenceParsingError{item, "invalid exclusion"}
		}
		excl.sequences = append(excl.sequences, seq)
	}
	return excl, nil
}

func (s *IntegerSequence) Type() string { return TypeInteger }
func (s *IntegerSequence) SortKey() int { return sortKeyInteger }

func (s *IntegerSequence) String() string {
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

func (s *IntegerSequence) Interval() Interval {
	if s.step == nil {
		return nil
	}
	return *s.step
}

func (s *IntegerSequence) StartPoint() Point {
	if s.start == nil {
		return nil
	}
	if s.exclusions.Contains(*s.start) {
		return s.NextPointOnSequence(*s.start)
	}
	return *s.start
}

func (s *IntegerSequence) StopPoint() Point {
	if s.stop == nil {
		return nil
	}
	if s.exclusions.Contains(*s.stop) {
		return s.PrevPoint(*s.stop)
	}
	return *s.stop
}

func (s *IntegerSequence) IsOnSequence(p Point) bool {
	ip, ok := p.(IntegerPoint)
	if !ok || s.start == nil {
		return false
	}
	if s.exclusions.Contains(ip) {
		return false
	}
	if s.step == nil {
		return ip.n == s.start.n
	}
	return pymod(ip.n-s.start.n, s.step.n) == 0
}

func (s *IntegerSequence) IsValid(p Point) bool {
	ip, ok := p.(IntegerPoint)
	if !ok {
		return false
	}
	return s.IsOnSequence(ip) && s.inBounds(ip.n)
}

func (s *IntegerSequence) inBounds(n int) bool {
	return s.start != nil && n >= s.start.n &&
		(s.stop == nil || n <= s.stop.n)
}

func (s *IntegerSequence) pointInBounds(n int) Point {
	if s.inBounds(n) {
		return integerPointOf(n)
	}
	return nil
}

func (s *IntegerSequence) PrevPoint(p Point) Point {
	ip, ok := p.(IntegerPoint)
	if !ok || s.step == nil || s.start == nil {
		// a one-off sequence has no previous point
		return nil
	}
	i := pymod(ip.n-s.start.n, s.step.n)
	prev := ip.n - i
	if i == 0 {
		prev = ip.n - s.step.n
	}
	ret := s.pointInBounds(prev)
	if ret != nil && s.exclusions.Contains(ret) {
		return s.PrevPoint(ret)
	}
	return ret
}

func (s *IntegerSequence) NearestPrevPoint(p Point) Point {
	if s.IsOnSequence(p) {
		return s.PrevPoint(p)
	}
	ip, ok := p.(IntegerPoint)
	if !ok || s.start == nil {
		return nil
	}
	var prev Point
	for sp := s.pointInBounds(s.start.n); sp != nil; sp = s.NextPoint(sp) {
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

func (s *IntegerSequence) NextPoint(p Point) Point {
	ip, ok := p.(IntegerPoint)
	if !ok || s.start == nil {
		return nil
	}
	if s.step == nil {
		// one-off sequence
		if ip.n < s.start.n {
			return *s.start
		}
		return nil
	}
	i := pymod(ip.n-s.start.n, s.step.n)
	ret := s.pointInBounds(ip.n + s.step.n - i)
	if ret != nil && s.exclusions.Contains(ret) {
		return s.NextPoint(ret)
	}
	return ret
}

func (s *IntegerSequence) NextPointOnSequence(p Point) Point {
	ip, ok := p.(IntegerPoint)
	if !ok || s.step == nil {
		return nil
	}
	ret := s.pointInBounds(ip.n + s.step.n)
	if ret != nil && s.exclusions.Contains(ret) {
		return s.NextPointOnSequence(ret)
	}
	return ret
}

func (s *IntegerSequence) FirstPoint(p Point) Point {
	ip, ok := p.(IntegerPoint)
	if !ok || s.start == nil {
		return nil
	}
	var ret Point
	switch {
	case ip.n <= s.start.n:
		ret = s.pointInBounds(s.start.n)
	case s.IsOnSequence(ip):
		ret = s.pointInBounds(ip.n)
	default:
		ret = s.NextPoint(ip)
	}
	if ret != nil && s.exclusions.Contains(ret) {
		return s.NextPointOnSequence(ret)
	}
	return ret
}

// Equal reports whether other generates the same set of points, i.e. the
// same start, stop, step, and exclusions, regardless of how either
// recurrence was written.
func (s *IntegerSequence) Equal(other Sequence) bool {
	o, ok := other.(*IntegerSequence)
	if !ok {
		return false
	}
	if (s.step == nil) != (o.step == nil) {
		return false
	}
	if s.step != nil && s.step.n != o.step.n {
		return false
	}
	return intPtrEqual(s.start, o.start) &&
		intPtrEqual(s.stop, o.stop) &&
		s.exclusions.Equal(o.exclusions)
}

func intPtrEqual(a, b *IntegerPoint) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.n == b.n
}

// integerPointRelative applies a relative point expression ("+P2", "-P12")
// to a base point, or parses an absolute expression ("4") outright.
func integerPointRelative(expr string, base Point) (Point, error) {
	if recIntegerRelativePoint.MatchString(expr) {
		iv, err := NewIntegerInterval(expr)
		if err != nil {
			return nil, err
		}
		return PointAdd(base, iv)
	}
	return NewIntegerPoint(expr)
}

// integerIsOffsetAbsolute reports whether the offset string is a point
// ("4") rather than a relative interval ("+P1").
func integerIsOffsetAbsolute(offset string) bool {
	return !recIntegerRelativePoint.MatchString(offset)
}
