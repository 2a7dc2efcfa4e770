// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"fmt"
)

var _ error = PointParsingError{}

// PointParsingError is returned when a point string cannot be parsed by
// its cycler type. It carries the offending raw string for diagnostics.
type PointParsingError struct {
	CyclerType string
	Value      string
	Reason     string
}

func (e PointParsingError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s cycle point: %q", e.CyclerType, e.Value)
	}
	return fmt.Sprintf("invalid %s cycle point: %q: %s", e.CyclerType, e.Value, e.Reason)
}

var _ error = IntervalParsingError{}

// IntervalParsingError is returned when an interval/offset string cannot
// be parsed by its cycler type.
type IntervalParsingError struct {
	CyclerType string
	Value      string
}

func (e IntervalParsingError) Error() string {
	return fmt.Sprintf("invalid %s interval: %q", e.CyclerType, e.Value)
}

var _ error = SequenceParsingError{}

// SequenceParsingError is returned when a recurrence expression cannot be
// parsed, including malformed exclusion syntax.
type SequenceParsingError struct {
	Value  string
	Reason string
}

func (e SequenceParsingError) Error() string {
	return fmt.Sprintf("invalid recurrence: %q: %s", e.Value, e.Reason)
}

var _ error = CyclerTypeError{}

// CyclerTypeError is returned on cross-domain arithmetic, e.g. adding an
// integer point to an ISO 8601 interval. It indicates a programming error:
// graph validation should have caught the domain mismatch earlier.
type CyclerTypeError struct {
	TypeA  string
	ValueA string
	TypeB  string
	ValueB string
}

func (e CyclerTypeError) Error() string {
	return fmt.Sprintf("incompatible cycler types: %s (%q) and %s (%q)",
		e.TypeA, e.ValueA, e.TypeB, e.ValueB)
}

var _ error = UnknownModeError{}

// UnknownModeError is returned when an unrecognized cycling mode is
// requested from the loader. Fatal to the calling configuration step.
type UnknownModeError struct {
	Mode string
}

func (e UnknownModeError) Error() string {
	return fmt.Sprintf("unknown cycling mode: %q", e.Mode)
}

var _ error = MissingContextPointError{}

// MissingContextPointError is returned when a recurrence needs a context
// point (initial or final cycle point) that was not supplied.
type MissingContextPointError struct {
	Value string
}

func (e MissingContextPointError) Error() string {
	return fmt.Sprintf("recurrence %q: missing context cycle point", e.Value)
}
