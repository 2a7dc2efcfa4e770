// Copyright 2020-2022, Square, Inc.

// Package trigger turns parsed graph nodes into TaskTrigger values,
// combines them into Dependency expression templates, and materializes
// per-instance Prerequisites from them.
package trigger

import (
	"fmt"
	"strings"

	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/prereq"
	"github.com/cylc/cylc-flow-sub007/task"
)

// A TaskTrigger describes one graph edge's upstream reference: task name,
// optional cycle point offset, and output name. Immutable after
// construction; triggers are deduplicated across graph edges.
type TaskTrigger struct {
	cy *cycling.Cycler

	Task   string
	Offset string // "" if none
	Output string

	OffsetIsIrregular bool
	OffsetIsAbsolute  bool
	OffsetIsFromICP   bool

	// InitialPoint is the base point for from-ICP offsets.
	InitialPoint cycling.Point
}

// NewTaskTrigger builds a trigger. An irregular offset with an absolute
// leading component (one not starting with P, T, or a sign) references a
// fixed cycle and is treated as absolute.
func NewTaskTrigger(cy *cycling.Cycler, taskName, offset, output string,
	fromICP, irregular, absolute bool, initialPoint cycling.Point) *TaskTrigger {

	if irregular && !fromICP && offset != "" &&
		!strings.ContainsRune("PT+-", rune(offset[0])) {
		absolute = true
	}
	return &TaskTrigger{
		cy:                cy,
		Task:              taskName,
		Offset:            offset,
		Output:            output,
		OffsetIsIrregular: irregular,
		OffsetIsAbsolute:  absolute,
		OffsetIsFromICP:   fromICP,
		InitialPoint:      initialPoint,
	}
}

// ParentPoint resolves the cycle point of the upstream task, given the
// point of this trigger's owner.
func (t *TaskTrigger) ParentPoint(from cycling.Point) (cycling.Point, error) {
	switch {
	case t.Offset == "":
		return from, nil
	case t.OffsetIsAbsolute:
		if t.OffsetIsIrregular {
			// absolute head plus duration chunks; the base is unused
			return t.cy.PointRelative(t.Offset, from)
		}
		return t.cy.Point(t.Offset)
	case t.OffsetIsFromICP:
		return t.offsetFrom(t.InitialPoint)
	}
	return t.offsetFrom(from)
}

// offsetFrom applies the offset to a base point. Regular offsets are
// standardised intervals; irregular ones need full relative resolution.
func (t *TaskTrigger) offsetFrom(base cycling.Point) (cycling.Point, error) {
	if iv, err := t.cy.Interval(t.Offset); err == nil {
		return cycling.PointAdd(base, iv)
	}
	return t.cy.PointRelative(t.Offset, base)
}

// Point resolves the point of the referenced output, for stringifying and
// expression construction. Same resolution as ParentPoint.
func (t *TaskTrigger) Point(point cycling.Point) (cycling.Point, error) {
	return t.ParentPoint(point)
}

// ChildPoint resolves the downstream cycle point a trigger implies when
// scanning forward through the graph: the inverse of ParentPoint.
// Absolute and from-ICP offsets have no arithmetic inverse; the child is
// the first point of the sequence. Irregular offsets invert by swapping
// signs; regular offsets subtract the interval.
func (t *TaskTrigger) ChildPoint(from cycling.Point, seq cycling.Sequence) (cycling.Point, error) {
	switch {
	case t.Offset == "":
		return from, nil
	case t.OffsetIsAbsolute || t.OffsetIsFromICP:
		if seq == nil {
			return nil, fmt.Errorf("no sequence to place absolute trigger %s", t)
		}
		return seq.FirstPoint(from), nil
	case t.OffsetIsIrregular:
		flipped := strings.Map(func(r rune) rune {
			switch r {
			case '-':
				return '+'
			case '+':
				return '-'
			}
			return r
		}, t.Offset)
		return t.cy.PointRelative(flipped, from)
	}
	iv, err := t.cy.Interval(t.Offset)
	if err != nil {
		return nil, err
	}
	return cycling.PointSub(from, iv)
}

func (t *TaskTrigger) String() string {
	if t.Offset == "" {
		return fmt.Sprintf("%s:%s", t.Task, t.Output)
	}
	offset := t.Offset
	if t.OffsetIsFromICP {
		offset = "^" + offset
	}
	return fmt.Sprintf("%s[%s]:%s", t.Task, offset, t.Output)
}

// key identifies a trigger for deduplication across graph edges.
func (t *TaskTrigger) key() string {
	return t.String()
}

// An Item is one token of a Dependency expression: a trigger, an "&"/"|"
// operator, or a parenthesized sub-expression.
type Item struct {
	Trigger *TaskTrigger
	Op      string
	Sub     []Item
}

// A Dependency is the immutable expression template shared by all
// instances of one graph edge: the nested expression, the flat deduped
// trigger set, and whether satisfaction kills the owner (suicide).
type Dependency struct {
	expr     []Item
	triggers []*TaskTrigger
	Suicide  bool
}

// NewDependency builds a Dependency, deriving the flat trigger set from
// the expression.
func NewDependency(expr []Item, suicide bool) *Dependency {
	d := &Dependency{expr: expr, Suicide: suicide}
	seen := map[string]bool{}
	var collect func(items []Item)
	collect = func(items []Item) {
		for _, it := range items {
			switch {
			case it.Trigger != nil:
				if !seen[it.Trigger.key()] {
					seen[it.Trigger.key()] = true
					d.triggers = append(d.triggers, it.Trigger)
				}
			case it.Sub != nil:
				collect(it.Sub)
			}
		}
	}
	collect(expr)
	return d
}

// Triggers returns the flat deduplicated trigger set.
func (d *Dependency) Triggers() []*TaskTrigger {
	return d.triggers
}

func (d *Dependency) String() string {
	parts := []string{}
	if d.Suicide {
		parts = append(parts, "!")
	}
	for _, it := range d.expr {
		parts = append(parts, "( "+itemString(it)+" )")
	}
	return strings.Join(parts, " ")
}

func itemString(it Item) string {
	switch {
	case it.Trigger != nil:
		return it.Trigger.String()
	case it.Op != "":
		return it.Op
	}
	inner := make([]string, 0, len(it.Sub))
	for _, sub := range it.Sub {
		inner = append(inner, itemString(sub))
	}
	return strings.Join(inner, " ")
}

// hasCond reports whether the expression contains any "|" operator;
// conjunction-only dependencies need no conditional expression.
func (d *Dependency) hasCond() bool {
	var walk func(items []Item) bool
	walk = func(items []Item) bool {
		for _, it := range items {
			if it.Op == prereq.OpOr {
				return true
			}
			if it.Sub != nil && walk(it.Sub) {
				return true
			}
		}
		return false
	}
	return walk(d.expr)
}

// GetPrerequisite materializes a Prerequisite for the task instance of
// tdef at point. Forward references raise tdef's MaxFuturePrereqOffset.
// Entries on cycles before the start point register pre-initial (already
// satisfied) when the owner itself is at or after the start point.
func (d *Dependency) GetPrerequisite(point cycling.Point, tdef *task.Def) (*prereq.Prerequisite, error) {
	cp := prereq.New(point)
	for _, tr := range d.triggers {
		prereqPoint, err := tr.ParentPoint(point)
		if err != nil {
			return nil, err
		}
		if cycling.PointCmp(prereqPoint, point) > 0 {
			offset, err := cycling.PointDiff(prereqPoint, point)
			if err != nil {
				return nil, err
			}
			tdef.UpdateMaxFuturePrereqOffset(offset)
		}
		preInitial := cycling.PointCmp(prereqPoint, tdef.StartPoint) < 0 &&
			cycling.PointCmp(point, tdef.StartPoint) >= 0
		cp.Add(prereq.Tuple{
			Point:  prereqPoint.String(),
			Task:   tr.Task,
			Output: tr.Output,
		}, preInitial)
	}
	if d.hasCond() {
		expr, err := exprFromItems(d.expr, point)
		if err != nil {
			return nil, err
		}
		if err := cp.SetCondition(expr); err != nil {
			return nil, err
		}
	}
	return cp, nil
}

// exprFromItems lowers the nested item list into a structured boolean
// expression over concrete tuples, honoring "&" over "|" precedence.
func exprFromItems(items []Item, point cycling.Point) (*prereq.Expr, error) {
	var orArgs []*prereq.Expr
	var andArgs []*prereq.Expr

	flush := func() error {
		switch len(andArgs) {
		case 0:
			return prereq.TriggerExpressionError{Reason: "missing operand"}
		case 1:
			orArgs = append(orArgs, andArgs[0])
		default:
			orArgs = append(orArgs, prereq.Group(prereq.OpAnd, andArgs...))
		}
		andArgs = nil
		return nil
	}

	for _, it := range items {
		switch {
		case it.Op == prereq.OpOr:
			if err := flush(); err != nil {
				return nil, err
			}
		case it.Op == prereq.OpAnd:
			// operands accumulate; nothing to do
		case it.Trigger != nil:
			p, err := it.Trigger.Point(point)
			if err != nil {
				return nil, err
			}
			andArgs = append(andArgs, prereq.Leaf(prereq.Tuple{
				Point:  p.String(),
				Task:   it.Trigger.Task,
				Output: it.Trigger.Output,
			}))
		default:
			sub, err := exprFromItems(it.Sub, point)
			if err != nil {
				return nil, err
			}
			andArgs = append(andArgs, sub)
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if len(orArgs) == 1 {
		return orArgs[0], nil
	}
	return prereq.Group(prereq.OpOr, orArgs...), nil
}
