// Copyright 2020-2022, Square, Inc.

// Package cycling implements the point, interval, and sequence arithmetic
// that drives cyclic workflows. Three cycling domains implement one sealed
// interface: integer cycling, ISO 8601 calendar cycling, and a degenerate
// "nocycle" domain for one-off startup/shutdown graphs.
//
// Points, intervals, and sequences are immutable value types: they are
// standardised at construction and safe to share without locking.
package cycling

// Cycler type tags and cross-domain sort keys. Points of different domains
// never compare by value; ordering between domains falls back to the sort
// key alone.
const (
	TypeInteger = "integer"
	TypeISO8601 = "iso8601"
	TypeNocycle = "nocycle"
)

const (
	sortKeyInteger = 0
	sortKeyISO8601 = 1
	sortKeyNocycle = 2
)

// A Point is a single position in a cycler sequence. Implementations are
// standardised at construction so that String() is canonical: two points
// that compare equal always stringify identically, which keeps map keys
// consistent with equality.
type Point interface {
	// Type returns the cycler type tag of this point.
	Type() string

	// SortKey orders points of different cycler types.
	SortKey() int

	// String returns the canonical string value.
	String() string

	// add other (interval) to self, returning a point. Domain arithmetic
	// only; the exported wrapper rejects cross-domain operands first.
	add(Interval) (Point, error)

	// subPoint returns self minus another point, as an interval.
	subPoint(Point) (Interval, error)

	// subInterval returns self minus an interval, as a point.
	subInterval(Interval) (Point, error)

	// cmp three-way compares against a point of the same type.
	cmp(Point) int
}

// An Interval is a duration separating points in a cycler sequence. Like
// Point, implementations are canonical-by-construction.
type Interval interface {
	// Type returns the cycler type tag of this interval.
	Type() string

	// SortKey orders intervals of different cycler types.
	SortKey() int

	// String returns the canonical string value.
	String() string

	// IsNull reports whether this is the domain's null (zero) interval.
	IsNull() bool

	// Abs returns the non-negative version of this interval.
	Abs() Interval

	// Mul returns this interval with all properties multiplied by factor.
	Mul(factor int) Interval

	add(Interval) (Interval, error)
	sub(Interval) (Interval, error)
	cmp(Interval) int
}

// A Sequence is the recurring set of points defined by a recurrence
// expression plus a bounding context (typically the workflow's initial and
// final cycle points). Sequence queries return nil for "out of bounds".
//
// Sequences are immutable after construction, so results of IsOnSequence
// may be memoized per (sequence, point) by callers and implementations.
type Sequence interface {
	// Type returns the cycler type tag of this sequence.
	Type() string

	// SortKey orders sequences of different cycler types.
	SortKey() int

	// String returns a canonical representation of the recurrence.
	String() string

	// Interval returns the cycling interval, or nil for a one-off sequence.
	Interval() Interval

	// StartPoint returns the first point of the sequence, or nil.
	StartPoint() Point

	// StopPoint returns the last point, or nil if unbounded.
	StopPoint() Point

	// IsOnSequence reports whether point is on-sequence, ignoring bounds.
	IsOnSequence(Point) bool

	// IsValid reports whether point is on-sequence and in-bounds.
	IsValid(Point) bool

	// PrevPoint returns the previous point < point, or nil if out of bounds.
	PrevPoint(Point) Point

	// NearestPrevPoint returns the largest sequence point < an arbitrary
	// point (which need not be on-sequence), or nil.
	NearestPrevPoint(Point) Point

	// NextPoint returns the next point > point, or nil if out of bounds.
	NextPoint(Point) Point

	// NextPointOnSequence is the cheaper variant of NextPoint for a point
	// already known to be on-sequence.
	NextPointOnSequence(Point) Point

	// FirstPoint returns the first point >= point, or nil if out of bounds.
	FirstPoint(Point) Point

	// Equal reports whether other represents the same set of points.
	// Two differently-written recurrence expressions may be equal.
	Equal(Sequence) bool
}

// PointCmp three-way compares two points. A nil point sorts after any
// non-nil point. Points of different cycler types compare by sort key
// alone; identical canonical strings short-circuit to equal.
func PointCmp(a, b Point) int {
	if a == nil && b == nil {
		return 0
	}
	if b == nil {
		return -1
	}
	if a == nil {
		return 1
	}
	if a.Type() != b.Type() {
		return cmpInt(a.SortKey(), b.SortKey())
	}
	if a.String() == b.String() {
		return 0
	}
	return a.cmp(b)
}

// PointEqual reports whether two points are equal under PointCmp.
func PointEqual(a, b Point) bool {
	return PointCmp(a, b) == 0
}

// PointAdd returns point + interval. Mixing cycler types is an error.
func PointAdd(p Point, iv Interval) (Point, error) {
	if p.Type() != iv.Type() {
		return nil, CyclerTypeError{p.Type(), p.String(), iv.Type(), iv.String()}
	}
	return p.add(iv)
}

// PointDiff returns a - b as an interval. Mixing cycler types is an error.
func PointDiff(a, b Point) (Interval, error) {
	if a.Type() != b.Type() {
		return nil, CyclerTypeError{a.Type(), a.String(), b.Type(), b.String()}
	}
	return a.subPoint(b)
}

// PointSub returns point - interval. Mixing cycler types is an error.
func PointSub(p Point, iv Interval) (Point, error) {
	if p.Type() != iv.Type() {
		return nil, CyclerTypeError{p.Type(), p.String(), iv.Type(), iv.String()}
	}
	return p.subInterval(iv)
}

// IntervalCmp three-way compares two intervals, with the same cross-type
// and nil semantics as PointCmp.
func IntervalCmp(a, b Interval) int {
	if a == nil && b == nil {
		return 0
	}
	if b == nil {
		return -1
	}
	if a == nil {
		return 1
	}
	if a.Type() != b.Type() {
		return cmpInt(a.SortKey(), b.SortKey())
	}
	if a.String() == b.String() {
		return 0
	}
	return a.cmp(b)
}

// IntervalEqual reports whether two intervals are equal under IntervalCmp.
func IntervalEqual(a, b Interval) bool {
	return IntervalCmp(a, b) == 0
}

// IntervalAdd returns a + b. Mixing cycler types is an error.
func IntervalAdd(a, b Interval) (Interval, error) {
	if a.Type() != b.Type() {
		return nil, CyclerTypeError{a.Type(), a.String(), b.Type(), b.String()}
	}
	return a.add(b)
}

// IntervalSub returns a - b. Mixing cycler types is an error.
func IntervalSub(a, b Interval) (Interval, error) {
	if a.Type() != b.Type() {
		return nil, CyclerTypeError{a.Type(), a.String(), b.Type(), b.String()}
	}
	return a.sub(b)
}

// FirstNPoints returns the first n points of seq at or after
// max(sequence start, wfStart). wfStart may be nil. Implemented generically
// atop FirstPoint/NextPointOnSequence so domains need not reimplement
// iteration.
func FirstNPoints(seq Sequence, n int, wfStart Point) []Point {
	start := seq.StartPoint()
	if start == nil {
		return nil
	}
	if wfStart != nil && PointCmp(wfStart, start) > 0 {
		start = seq.FirstPoint(wfStart)
	}
	points := make([]Point, 0, n)
	p := start
	for i := 0; i < n && p != nil; i++ {
		points = append(points, p)
		p = seq.NextPointOnSequence(p)
	}
	return points
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
