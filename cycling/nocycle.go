// Copyright 2020-2022, Square, Inc.

package cycling

// The nocycle domain covers non-cycling workflows: the only points are
// "startup" and "shutdown", points have no ordering, and the only interval
// is the null interval.
const (
	NocycleStartup  = "startup"
	NocycleShutdown = "shutdown"
)

// NocyclePoint is one of the two fixed non-cycling points.
type NocyclePoint struct {
	value string
}

func NewNocyclePoint(value string) (NocyclePoint, error) {
	if value != NocycleStartup && value != NocycleShutdown {
		return NocyclePoint{}, PointParsingError{TypeNocycle, value, ""}
	}
	return NocyclePoint{value: value}, nil
}

func (p NocyclePoint) Type() string   { return TypeNocycle }
func (p NocyclePoint) SortKey() int   { return sortKeyNocycle }
func (p NocyclePoint) String() string { return p.value }

// Non-cycling points have no arithmetic: addition and subtraction of the
// null interval are identities, everything else is an error.

func (p NocyclePoint) add(other Interval) (Point, error) {
	if !other.IsNull() {
		return nil, IntervalParsingError{TypeNocycle, other.String()}
	}
	return p, nil
}

func (p NocyclePoint) subPoint(other Point) (Interval, error) {
	if p.value != other.(NocyclePoint).value {
		return nil, CyclerTypeError{TypeNocycle, p.value, TypeNocycle, other.String()}
	}
	return NocycleIntervalNull(), nil
}

func (p NocyclePoint) subInterval(other Interval) (Point, error) {
	if !other.IsNull() {
		return nil, IntervalParsingError{TypeNocycle, other.String()}
	}
	return p, nil
}

// Points in this domain have no ordering; only equality is meaningful.
// Unequal points compare by string so sorting stays deterministic.
func (p NocyclePoint) cmp(other Point) int {
	return cmpStrings(p.value, other.(NocyclePoint).value)
}

func cmpStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// NocycleInterval is the only interval in the nocycle domain: the null
// interval.
type NocycleInterval struct{}

// NewNocycleInterval parses an interval string. Only the null forms are
// accepted.
func NewNocycleInterval(value string) (NocycleInterval, error) {
	if value != "" && value != "P0" {
		return NocycleInterval{}, IntervalParsingError{TypeNocycle, value}
	}
	return NocycleInterval{}, nil
}

func NocycleIntervalNull() NocycleInterval { return NocycleInterval{} }

func (iv NocycleInterval) Type() string             { return TypeNocycle }
func (iv NocycleInterval) SortKey() int             { return sortKeyNocycle }
func (iv NocycleInterval) String() string           { return "P0" }
func (iv NocycleInterval) IsNull() bool             { return true }
func (iv NocycleInterval) Abs() Interval            { return iv }
func (iv NocycleInterval) Mul(factor int) Interval  { return iv }
func (iv NocycleInterval) add(o Interval) (Interval, error) {
	return iv, nil
}
func (iv NocycleInterval) sub(o Interval) (Interval, error) {
	return iv, nil
}
func (iv NocycleInterval) cmp(o Interval) int { return 0 }

// NocycleSequence is a one-point sequence at startup or shutdown.
type NocycleSequence struct {
	point NocyclePoint
}

func NewNocycleSequence(expr string) (*NocycleSequence, error) {
	p, err := NewNocyclePoint(expr)
	if err != nil {
		return nil, SequenceParsingError{expr, "not a non-cycling point"}
	}
	return &NocycleSequence{point: p}, nil
}

func (s *NocycleSequence) Type() string          { return TypeNocycle }
func (s *NocycleSequence) SortKey() int          { return sortKeyNocycle }
func (s *NocycleSequence) String() string        { return s.point.value }
func (s *NocycleSequence) Interval() Interval    { return nil }
func (s *NocycleSequence) StartPoint() Point     { return s.point }
func (s *NocycleSequence) StopPoint() Point      { return s.point }

func (s *NocycleSequence) IsOnSequence(p Point) bool {
	np, ok := p.(NocyclePoint)
	return ok && np.value == s.point.value
}

func (s *NocycleSequence) IsValid(p Point) bool { return s.IsOnSequence(p) }

func (s *NocycleSequence) PrevPoint(p Point) Point        { return nil }
func (s *NocycleSequence) NearestPrevPoint(p Point) Point { return nil }
func (s *NocycleSequence) NextPoint(p Point) Point        { return nil }
func (s *NocycleSequence) NextPointOnSequence(p Point) Point { return nil }

func (s *NocycleSequence) FirstPoint(p Point) Point {
	if s.IsOnSequence(p) {
		return s.point
	}
	return nil
}

func (s *NocycleSequence) Equal(other Sequence) bool {
	o, ok := other.(*NocycleSequence)
	return ok && o.point.value == s.point.value
}
