// Copyright 2020-2022, Square, Inc.

package trigger

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/graph"
	"github.com/cylc/cylc-flow-sub007/prereq"
	"github.com/cylc/cylc-flow-sub007/proto"
	"github.com/cylc/cylc-flow-sub007/task"
)

func intCycler(t *testing.T) *cycling.Cycler {
	t.Helper()
	cy, err := cycling.NewCycler(cycling.TypeInteger, cycling.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return cy
}

func isoCycler(t *testing.T) *cycling.Cycler {
	t.Helper()
	cy, err := cycling.NewCycler(cycling.TypeISO8601, cycling.Options{UTCMode: true})
	if err != nil {
		t.Fatal(err)
	}
	return cy
}

func point(t *testing.T, cy *cycling.Cycler, v string) cycling.Point {
	t.Helper()
	p, err := cy.Point(v)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func intParser(t *testing.T, initial string) *Parser {
	t.Helper()
	cy := intCycler(t)
	return NewParser(cy, graph.NewNodeParser(cy), point(t, cy, initial))
}

func TestStandardiseOutput(t *testing.T) {
	cases := map[string]string{
		"":            "succeeded",
		"succeed":     "succeeded",
		"fail":        "failed",
		"start":       "started",
		"submit":      "submitted",
		"submit-fail": "submit-failed",
		"finish":      "finished",
		"succeeded":   "succeeded",
		"custom-out":  "custom-out",
	}
	for in, want := range cases {
		if got := StandardiseOutput(in); got != want {
			t.Errorf("StandardiseOutput(%q) = %q, expected %q", in, got, want)
		}
	}
}

func TestTaskTriggerParentPoint(t *testing.T) {
	cy := intCycler(t)
	initial := point(t, cy, "1")
	from := point(t, cy, "5")

	cases := []struct {
		name    string
		trigger *TaskTrigger
		want    string
	}{
		{
			"no offset",
			NewTaskTrigger(cy, "foo", "", "succeeded", false, false, false, initial),
			"5",
		},
		{
			"regular offset",
			NewTaskTrigger(cy, "foo", "-P1", "succeeded", false, false, false, initial),
			"4",
		},
		{
			"absolute offset",
			NewTaskTrigger(cy, "foo", "2", "succeeded", false, false, true, initial),
			"2",
		},
		{
			"from-icp offset",
			NewTaskTrigger(cy, "foo", "P2", "succeeded", true, false, false, initial),
			"3",
		},
	}
	for _, c := range cases {
		got, err := c.trigger.ParentPoint(from)
		if err != nil {
			t.Errorf("%s: %s", c.name, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("%s: ParentPoint(5) = %s, expected %s", c.name, got, c.want)
		}
	}
}

func TestTaskTriggerChildPoint(t *testing.T) {
	cy := intCycler(t)
	initial := point(t, cy, "1")

	// regular offsets invert arithmetically
	tr := NewTaskTrigger(cy, "foo", "-P1", "succeeded", false, false, false, initial)
	got, err := tr.ChildPoint(point(t, cy, "4"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "5" {
		t.Errorf("ChildPoint(4) = %s, expected 5", got)
	}

	// absolute offsets place the child at the sequence's first point
	seq, err := cy.Sequence("P3", "1", "15")
	if err != nil {
		t.Fatal(err)
	}
	tr = NewTaskTrigger(cy, "foo", "1", "succeeded", false, false, true, initial)
	got, err = tr.ChildPoint(point(t, cy, "1"), seq)
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "1" {
		t.Errorf("absolute ChildPoint = %s, expected 1", got)
	}
	if _, err := tr.ChildPoint(point(t, cy, "1"), nil); err == nil {
		t.Error("expected error for absolute trigger with no sequence")
	}
}

func TestTaskTriggerChildPointIrregular(t *testing.T) {
	cy := isoCycler(t)
	initial := point(t, cy, "20000101T00")

	// "-PT6H+P1D" is not a plain duration; inversion swaps the signs
	tr := NewTaskTrigger(cy, "foo", "-PT6H+P1D", "succeeded", false, true, false, initial)

	parent, err := tr.ParentPoint(point(t, cy, "20000102T0600Z"))
	if err != nil {
		t.Fatal(err)
	}
	if parent.String() != "20000103T0000Z" {
		t.Errorf("ParentPoint = %s, expected 20000103T0000Z", parent)
	}

	child, err := tr.ChildPoint(point(t, cy, "20000103T0000Z"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if child.String() != "20000102T0600Z" {
		t.Errorf("ChildPoint = %s, expected 20000102T0600Z", child)
	}
}

func TestTaskTriggerString(t *testing.T) {
	cy := intCycler(t)
	initial := point(t, cy, "1")

	cases := []struct {
		trigger *TaskTrigger
		want    string
	}{
		{NewTaskTrigger(cy, "foo", "", "succeeded", false, false, false, initial), "foo:succeeded"},
		{NewTaskTrigger(cy, "foo", "-P1", "failed", false, false, false, initial), "foo[-P1]:failed"},
		{NewTaskTrigger(cy, "foo", "P2", "succeeded", true, false, false, initial), "foo[^P2]:succeeded"},
	}
	for _, c := range cases {
		if got := c.trigger.String(); got != c.want {
			t.Errorf("String() = %q, expected %q", got, c.want)
		}
	}
}

func TestDependencyString(t *testing.T) {
	cy := intCycler(t)
	initial := point(t, cy, "1")
	tr := NewTaskTrigger(cy, "fake_task_name", "1", "fakeOutput", false, false, true, initial)
	expr := []Item{{Trigger: tr}, {Op: "&"}, {Trigger: tr}}

	d := NewDependency(expr, false)
	want := "( fake_task_name[1]:fakeOutput ) ( & ) ( fake_task_name[1]:fakeOutput )"
	if got := d.String(); got != want {
		t.Errorf("String() = %q, expected %q", got, want)
	}
	if len(d.Triggers()) != 1 {
		t.Errorf("Triggers() has %d entries, expected 1 (deduplicated)", len(d.Triggers()))
	}

	d = NewDependency(expr, true)
	want = "! " + want
	if got := d.String(); got != want {
		t.Errorf("suicide String() = %q, expected %q", got, want)
	}
}

func TestParserParse(t *testing.T) {
	p := intParser(t, "1")

	d, err := p.Parse("a & b:fail")
	if err != nil {
		t.Fatal(err)
	}
	triggers := d.Triggers()
	if len(triggers) != 2 {
		t.Fatalf("got %d triggers, expected 2", len(triggers))
	}
	if triggers[0].Output != "succeeded" || triggers[1].Output != "failed" {
		t.Errorf("outputs = %q, %q; expected succeeded, failed",
			triggers[0].Output, triggers[1].Output)
	}
	if d.Suicide {
		t.Error("Suicide = true, expected false")
	}

	d, err = p.Parse("! a")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Suicide {
		t.Error("Suicide = false, expected true")
	}

	for _, bad := range []string{"", "a &", "a b", "a && b", "(a & b", "a & ()", "a | b)"} {
		if _, err := p.Parse(bad); err == nil {
			t.Errorf("Parse(%q) did not error", bad)
		} else if _, ok := err.(DependencyError); !ok {
			t.Errorf("Parse(%q) error type %T, expected DependencyError", bad, err)
		}
	}
}

func TestGetPrerequisite(t *testing.T) {
	p := intParser(t, "1")
	cy := intCycler(t)
	tdef := &task.Def{
		Name:         "t",
		InitialPoint: point(t, cy, "1"),
		StartPoint:   point(t, cy, "3"),
	}

	d, err := p.Parse("a[-P1] & b")
	if err != nil {
		t.Fatal(err)
	}
	pre, err := d.GetPrerequisite(point(t, cy, "3"), tdef)
	if err != nil {
		t.Fatal(err)
	}

	// a resolves to cycle 2, before the start point: pre-initial, already
	// satisfied. b at cycle 3 is outstanding.
	if s, ok := pre.State(prereq.Tuple{Point: "2", Task: "a", Output: "succeeded"}); !ok || !s.Satisfied() {
		t.Errorf("a@2 state = %q, %t; expected satisfied pre-initial", s, ok)
	}
	if pre.IsSatisfied() {
		t.Fatal("expected unsatisfied with b outstanding")
	}
	pre.SatisfyMe([]prereq.Tuple{{Point: "3", Task: "b", Output: "succeeded"}}, proto.RUN_MODE_LIVE, false)
	if !pre.IsSatisfied() {
		t.Error("expected satisfied after b completed")
	}
	if pre.HasCondition() {
		t.Error("conjunction-only dependency should have no conditional expression")
	}
}

func TestGetPrerequisiteFutureOffset(t *testing.T) {
	p := intParser(t, "1")
	cy := intCycler(t)
	tdef := &task.Def{
		Name:         "t",
		InitialPoint: point(t, cy, "1"),
		StartPoint:   point(t, cy, "1"),
	}

	d, err := p.Parse("c[+P2]")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.GetPrerequisite(point(t, cy, "3"), tdef); err != nil {
		t.Fatal(err)
	}
	if tdef.MaxFuturePrereqOffset == nil || tdef.MaxFuturePrereqOffset.String() != "P2" {
		t.Errorf("MaxFuturePrereqOffset = %v, expected P2", tdef.MaxFuturePrereqOffset)
	}
}

func TestGetPrerequisiteConditional(t *testing.T) {
	p := intParser(t, "1")
	cy := intCycler(t)
	tdef := &task.Def{
		Name:         "t",
		InitialPoint: point(t, cy, "1"),
		StartPoint:   point(t, cy, "1"),
	}

	d, err := p.Parse("a | b")
	if err != nil {
		t.Fatal(err)
	}
	pre, err := d.GetPrerequisite(point(t, cy, "2"), tdef)
	if err != nil {
		t.Fatal(err)
	}
	if !pre.HasCondition() {
		t.Fatal("expected conditional expression")
	}
	want := "2/a succeeded | 2/b succeeded"
	if got := pre.RawConditionalExpression(); got != want {
		t.Errorf("RawConditionalExpression() = %q, expected %q", got, want)
	}
	pre.SatisfyMe([]prereq.Tuple{{Point: "2", Task: "b", Output: "succeeded"}}, proto.RUN_MODE_LIVE, false)
	if !pre.IsSatisfied() {
		t.Error("expected satisfied: one OR term is enough")
	}
}

func TestGetPrerequisitePrecedence(t *testing.T) {
	p := intParser(t, "1")
	cy := intCycler(t)
	tdef := &task.Def{
		Name:         "t",
		InitialPoint: point(t, cy, "1"),
		StartPoint:   point(t, cy, "1"),
	}

	// & binds tighter than |: (a & b) | c
	d, err := p.Parse("a & b | c")
	if err != nil {
		t.Fatal(err)
	}
	pre, err := d.GetPrerequisite(point(t, cy, "1"), tdef)
	if err != nil {
		t.Fatal(err)
	}
	pre.SatisfyMe([]prereq.Tuple{{Point: "1", Task: "c", Output: "succeeded"}}, proto.RUN_MODE_LIVE, false)
	if !pre.IsSatisfied() {
		t.Error("expected satisfied: c alone completes (a & b) | c")
	}

	// explicit grouping overrides: a & (b | c)
	d, err = p.Parse("a & (b | c)")
	if err != nil {
		t.Fatal(err)
	}
	pre, err = d.GetPrerequisite(point(t, cy, "1"), tdef)
	if err != nil {
		t.Fatal(err)
	}
	pre.SatisfyMe([]prereq.Tuple{{Point: "1", Task: "c", Output: "succeeded"}}, proto.RUN_MODE_LIVE, false)
	if pre.IsSatisfied() {
		t.Fatal("expected unsatisfied: a outstanding")
	}
	pre.SatisfyMe([]prereq.Tuple{{Point: "1", Task: "a", Output: "succeeded"}}, proto.RUN_MODE_LIVE, false)
	if !pre.IsSatisfied() {
		t.Error("expected satisfied: a & (c)")
	}

	want := []prereq.Tuple{
		{Point: "1", Task: "a", Output: "succeeded"},
		{Point: "1", Task: "b", Output: "succeeded"},
		{Point: "1", Task: "c", Output: "succeeded"},
	}
	if diff := deep.Equal(pre.Tuples(), want); diff != nil {
		t.Error(diff)
	}
}
