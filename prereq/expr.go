// Copyright 2020-2022, Square, Inc.

package prereq

import (
	"fmt"
	"strings"
)

// Expression operators.
const (
	OpAnd = "&"
	OpOr  = "|"
)

var _ error = TriggerExpressionError{}

// TriggerExpressionError is a malformed conditional expression. Should be
// unreachable for internally-built expressions, but defended against so a
// bad tree never evaluates silently. Expr carries the human-readable form
// for diagnostics.
type TriggerExpressionError struct {
	Expr   string
	Reason string
}

func (e TriggerExpressionError) Error() string {
	return fmt.Sprintf("bad trigger expression %q: %s", e.Expr, e.Reason)
}

// An Expr is a boolean expression over prerequisite tuples: either a
// single leaf tuple, or an AND/OR group of sub-expressions. Structured
// leaves make evaluation a map lookup, so one task name being a substring
// of another can never cause a false match.
type Expr struct {
	Op   string  // OpAnd or OpOr; "" for a leaf
	Args []*Expr // group members; nil for a leaf
	Leaf *Tuple  // nil for a group
}

// Leaf returns a leaf expression for one tuple.
func Leaf(t Tuple) *Expr {
	return &Expr{Leaf: &t}
}

// Group returns an AND/OR group over sub-expressions.
func Group(op string, args ...*Expr) *Expr {
	return &Expr{Op: op, Args: args}
}

// Validate checks the tree shape. A valid tree never fails evaluation.
func (e *Expr) Validate() error {
	if e == nil {
		return TriggerExpressionError{"", "nil expression"}
	}
	if e.Leaf != nil {
		return nil
	}
	if e.Op != OpAnd && e.Op != OpOr {
		return TriggerExpressionError{e.raw(), fmt.Sprintf("unknown operator %q", e.Op)}
	}
	if len(e.Args) == 0 {
		return TriggerExpressionError{e.raw(), "empty operator group"}
	}
	for _, arg := range e.Args {
		if err := arg.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Eval evaluates the expression, looking each leaf's truth value up via
// sat. Assumes a Validated tree.
func (e *Expr) Eval(sat func(Tuple) bool) bool {
	if e.Leaf != nil {
		return sat(*e.Leaf)
	}
	for _, arg := range e.Args {
		v := arg.Eval(sat)
		if e.Op == OpOr && v {
			return true
		}
		if e.Op == OpAnd && !v {
			return false
		}
	}
	return e.Op == OpAnd
}

// Render stringifies the expression, rendering each leaf via f and
// parenthesizing nested groups.
func (e *Expr) Render(f func(Tuple) string) string {
	if e.Leaf != nil {
		return f(*e.Leaf)
	}
	parts := make([]string, 0, len(e.Args))
	for _, arg := range e.Args {
		s := arg.Render(f)
		if arg.Leaf == nil {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, " "+e.Op+" ")
}

// Tuples returns every leaf tuple in the tree, in left-to-right order,
// with duplicates preserved.
func (e *Expr) Tuples() []Tuple {
	if e == nil {
		return nil
	}
	if e.Leaf != nil {
		return []Tuple{*e.Leaf}
	}
	var out []Tuple
	for _, arg := range e.Args {
		out = append(out, arg.Tuples()...)
	}
	return out
}

// raw is a best-effort render for error messages on possibly-bad trees.
func (e *Expr) raw() string {
	return e.Render(func(t Tuple) string { return t.Message() })
}
