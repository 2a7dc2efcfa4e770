// Copyright 2020-2022, Square, Inc.

// Package prereq implements the prerequisite state machine: the per-task-
// instance record of which upstream outputs must complete before the task
// may run, each entry independently satisfiable from different sources.
package prereq

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/proto"
)

// A Tuple identifies one upstream task output: (cycle point, task name,
// output name). Points are canonical strings so tuples are comparable and
// usable as map keys.
type Tuple struct {
	Point  string
	Task   string
	Output string
}

// TaskID returns the relative id of the upstream task instance,
// "point/task".
func (t Tuple) TaskID() string {
	return t.Point + "/" + t.Task
}

// Message returns the human-readable form used in conditional
// expressions, "point/task output".
func (t Tuple) Message() string {
	return t.TaskID() + " " + t.Output
}

// State is the satisfaction state of one entry. The zero value is
// unsatisfied; satisfied states are tagged by provenance.
type State string

const (
	Unsatisfied        State = ""
	SatisfiedNaturally State = "satisfied naturally"
	SatisfiedFromDB    State = "satisfied from database"
	SatisfiedBySkip    State = "satisfied by skip mode"
	ForceSatisfied     State = "force satisfied"
)

// Satisfied reports whether the state is any of the satisfied states.
func (s State) Satisfied() bool {
	return s != Unsatisfied
}

// String returns the state's display form.
func (s State) String() string {
	if s == Unsatisfied {
		return "unsatisfied"
	}
	return string(s)
}

// A Prerequisite is owned by exactly one task instance (by its cycle
// point): a set of upstream output entries with per-entry satisfaction
// state, plus an optional conditional expression for disjunctive graphs.
//
// Not safe for concurrent mutation; a prerequisite belongs to one
// scheduling loop.
type Prerequisite struct {
	point   cycling.Point
	entries map[Tuple]State
	order   []Tuple // registration order, for stable dumps
	cond    *Expr   // nil unless the graph used "|"
	cached  *bool   // memoized overall result; nil when stale
}

// New returns an empty Prerequisite owned by the task instance at point.
// With no entries it is vacuously satisfied.
func New(point cycling.Point) *Prerequisite {
	return &Prerequisite{
		point:   point,
		entries: map[Tuple]State{},
	}
}

// Point returns the owning task instance's cycle point.
func (p *Prerequisite) Point() cycling.Point {
	return p.point
}

// Add registers one upstream output. Pre-initial entries (dependencies on
// cycles before the workflow start) register already satisfied.
func (p *Prerequisite) Add(t Tuple, preInitial bool) {
	state := Unsatisfied
	if preInitial {
		state = SatisfiedNaturally
	}
	p.Set(t, state)
}

// Set registers or updates one entry. Every write invalidates the cached
// overall result.
func (p *Prerequisite) Set(t Tuple, state State) {
	if _, ok := p.entries[t]; !ok {
		p.order = append(p.order, t)
	}
	p.entries[t] = state
	p.cached = nil
}

// State returns the state of one entry, and whether the entry exists.
func (p *Prerequisite) State(t Tuple) (State, bool) {
	s, ok := p.entries[t]
	return s, ok
}

// Tuples returns the registered entries in registration order.
func (p *Prerequisite) Tuples() []Tuple {
	out := make([]Tuple, len(p.order))
	copy(out, p.order)
	return out
}

// SetCondition attaches the conditional expression for a disjunctive
// graph. Every leaf must be a registered entry.
func (p *Prerequisite) SetCondition(e *Expr) error {
	if err := e.Validate(); err != nil {
		return err
	}
	for _, t := range e.Tuples() {
		if _, ok := p.entries[t]; !ok {
			return TriggerExpressionError{
				Expr:   e.raw(),
				Reason: fmt.Sprintf("unregistered condition %q", t.Message()),
			}
		}
	}
	p.cond = e
	p.cached = nil
	return nil
}

// HasCondition reports whether a conditional expression is attached.
func (p *Prerequisite) HasCondition() bool {
	return p.cond != nil
}

// RawConditionalExpression returns the human-readable conditional
// expression, or "" if none.
func (p *Prerequisite) RawConditionalExpression() string {
	if p.cond == nil {
		return ""
	}
	return p.cond.Render(func(t Tuple) string { return t.Message() })
}

// IsSatisfied reports overall satisfaction: vacuously true with no
// entries; the AND of all entries without a conditional expression; else
// the conditional expression over entry truth values. The result is
// cached until the next write.
func (p *Prerequisite) IsSatisfied() bool {
	if p.cached != nil {
		return *p.cached
	}
	result := p.compute()
	p.cached = &result
	return result
}

func (p *Prerequisite) compute() bool {
	if len(p.entries) == 0 {
		return true
	}
	if p.cond != nil {
		return p.cond.Eval(p.satisfied)
	}
	for _, state := range p.entries {
		if !state.Satisfied() {
			return false
		}
	}
	return true
}

func (p *Prerequisite) satisfied(t Tuple) bool {
	return p.entries[t].Satisfied()
}

// SatisfyMe marks matching, previously-unsatisfied entries as satisfied:
// force satisfied if forced, satisfied by skip mode if the upstream ran
// in skip mode, else satisfied naturally. Returns the outputs that were
// consumed by this prerequisite.
func (p *Prerequisite) SatisfyMe(outputs []Tuple, mode string, forced bool) []Tuple {
	state := SatisfiedNaturally
	if forced {
		state = ForceSatisfied
	} else if mode == proto.RUN_MODE_SKIP {
		state = SatisfiedBySkip
	}
	var matched []Tuple
	for _, out := range outputs {
		if s, ok := p.entries[out]; ok && !s.Satisfied() {
			p.Set(out, state)
			matched = append(matched, out)
		}
	}
	return matched
}

// SetSatisfied forces every still-unsatisfied entry, then recomputes the
// overall result. With a conditional expression the result is genuinely
// re-evaluated rather than assumed true.
func (p *Prerequisite) SetSatisfied() {
	for t, state := range p.entries {
		if !state.Satisfied() {
			p.entries[t] = ForceSatisfied
		}
	}
	p.cached = nil
	result := p.compute()
	p.cached = &result
}

// SetNotSatisfied resets every entry to unsatisfied.
func (p *Prerequisite) SetNotSatisfied() {
	for t := range p.entries {
		p.entries[t] = Unsatisfied
	}
	p.cached = nil
}

// UnsetNaturallySatisfied reverts entries of the given upstream task id
// that are naturally satisfied (including database replays) back to
// unsatisfied. Force-satisfied entries are user overrides and survive.
// Returns the reverted tuples.
func (p *Prerequisite) UnsetNaturallySatisfied(taskID string) []Tuple {
	var reverted []Tuple
	for _, t := range p.order {
		state := p.entries[t]
		if t.TaskID() != taskID {
			continue
		}
		if state == SatisfiedNaturally || state == SatisfiedFromDB {
			p.Set(t, Unsatisfied)
			reverted = append(reverted, t)
		}
	}
	return reverted
}

// TargetPoints returns the sorted distinct upstream point strings this
// prerequisite references.
func (p *Prerequisite) TargetPoints() []string {
	seen := map[string]bool{}
	var points []string
	for _, t := range p.order {
		if !seen[t.Point] {
			seen[t.Point] = true
			points = append(points, t.Point)
		}
	}
	sort.Strings(points)
	return points
}

// ResolvedDependencies returns the sorted distinct upstream task ids with
// at least one satisfied entry.
func (p *Prerequisite) ResolvedDependencies() []string {
	seen := map[string]bool{}
	var ids []string
	for _, t := range p.order {
		id := t.TaskID()
		if p.entries[t].Satisfied() && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Status produces the display form: the expression with zero-padded
// aliases substituted for each condition, per-condition states, overall
// satisfaction, and the distinct points referenced.
func (p *Prerequisite) Status() proto.PrereqStatus {
	width := len(strconv.Itoa(len(p.order)))
	alias := make(map[Tuple]string, len(p.order))
	conditions := make([]proto.Condition, 0, len(p.order))
	for i, t := range p.order {
		a := fmt.Sprintf("%0*d", width, i)
		alias[t] = a
		state := p.entries[t]
		conditions = append(conditions, proto.Condition{
			Alias:     a,
			Message:   t.Message(),
			Satisfied: state.Satisfied(),
			State:     state.String(),
		})
	}

	expr := p.cond
	if expr == nil {
		args := make([]*Expr, 0, len(p.order))
		for _, t := range p.order {
			args = append(args, Leaf(t))
		}
		expr = Group(OpAnd, args...)
	}
	expression := ""
	if len(p.order) > 0 {
		expression = expr.Render(func(t Tuple) string { return alias[t] })
	}

	return proto.PrereqStatus{
		Expression: expression,
		Conditions: conditions,
		Satisfied:  p.IsSatisfied(),
		Points:     p.TargetPoints(),
	}
}
