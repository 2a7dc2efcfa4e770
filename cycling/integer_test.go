// Copyright 2020-2022, Square, Inc.

package cycling

import (
	"testing"

	"github.com/go-test/deep"
)

func intSeq(t *testing.T, expr, start, stop string) *IntegerSequence {
	t.Helper()
	s, err := NewIntegerSequence(expr, start, stop)
	if err != nil {
		t.Fatalf("NewIntegerSequence(%q, %q, %q): %s", expr, start, stop, err)
	}
	return s
}

func seqPoints(s Sequence, n int) []string {
	var out []string
	for p := s.StartPoint(); p != nil && len(out) < n; p = s.NextPointOnSequence(p) {
		out = append(out, p.String())
	}
	return out
}

func TestIntegerPointStandardise(t *testing.T) {
	for in, expect := range map[string]string{
		"1":   "1",
		"+1":  "1",
		"01":  "1",
		"-3":  "-3",
		"010": "10",
	} {
		p, err := NewIntegerPoint(in)
		if err != nil {
			t.Errorf("NewIntegerPoint(%q): %s", in, err)
			continue
		}
		if p.String() != expect {
			t.Errorf("NewIntegerPoint(%q) = %q, expected %q", in, p, expect)
		}
	}
	if _, err := NewIntegerPoint("a"); err == nil {
		t.Error("NewIntegerPoint(a): expected error, got nil")
	}
}

func TestIntegerPointArithmetic(t *testing.T) {
	p, _ := NewIntegerPoint("5")
	iv, _ := NewIntegerInterval("P3")

	sum, err := PointAdd(p, iv)
	if err != nil {
		t.Fatal(err)
	}
	if sum.String() != "8" {
		t.Errorf("5 + P3 = %s, expected 8", sum)
	}

	back, err := PointSub(sum, iv)
	if err != nil {
		t.Fatal(err)
	}
	if !PointEqual(back, p) {
		t.Errorf("8 - P3 = %s, expected 5", back)
	}

	diff, err := PointDiff(sum, p)
	if err != nil {
		t.Fatal(err)
	}
	if !IntervalEqual(diff, iv) {
		t.Errorf("8 - 5 = %s, expected P3", diff)
	}

	// adding the null interval is an identity
	same, err := PointAdd(p, IntegerIntervalNull())
	if err != nil {
		t.Fatal(err)
	}
	if !PointEqual(same, p) {
		t.Errorf("5 + P0 = %s, expected 5", same)
	}
}

func TestIntegerIntervalStandardise(t *testing.T) {
	for in, expect := range map[string]string{
		"P2":  "P2",
		"+P2": "P2",
		"-P1": "-P1",
		"P0":  "P0",
	} {
		iv, err := NewIntegerInterval(in)
		if err != nil {
			t.Errorf("NewIntegerInterval(%q): %s", in, err)
			continue
		}
		if iv.String() != expect {
			t.Errorf("NewIntegerInterval(%q) = %q, expected %q", in, iv, expect)
		}
	}
	for _, bad := range []string{"2", "P", "PT1", "P-1"} {
		if _, err := NewIntegerInterval(bad); err == nil {
			t.Errorf("NewIntegerInterval(%q): expected error, got nil", bad)
		}
	}

	neg, _ := NewIntegerInterval("-P4")
	if neg.Abs().String() != "P4" {
		t.Errorf("Abs(-P4) = %s, expected P4", neg.Abs())
	}
	if neg.Mul(-2).String() != "P8" {
		t.Errorf("-P4 * -2 = %s, expected P8", neg.Mul(-2))
	}
	if !IntegerIntervalNull().IsNull() {
		t.Error("IntegerIntervalNull().IsNull() = false")
	}
}

func TestIntegerSequenceBasic(t *testing.T) {
	s := intSeq(t, "P3", "1", "15")

	expect := []string{"1", "4", "7", "10", "13"}
	if diff := deep.Equal(seqPoints(s, 10), expect); diff != nil {
		t.Error(diff)
	}

	p5, _ := NewIntegerPoint("5")
	p7, _ := NewIntegerPoint("7")
	if got := s.NextPoint(p5); got == nil || got.String() != "7" {
		t.Errorf("NextPoint(5) = %v, expected 7", got)
	}
	if got := s.PrevPoint(p5); got == nil || got.String() != "4" {
		t.Errorf("PrevPoint(5) = %v, expected 4", got)
	}
	if got := s.FirstPoint(p5); got == nil || got.String() != "7" {
		t.Errorf("FirstPoint(5) = %v, expected 7", got)
	}
	if got := s.FirstPoint(p7); got == nil || got.String() != "7" {
		t.Errorf("FirstPoint(7) = %v, expected 7", got)
	}
	if got := s.NearestPrevPoint(p5); got == nil || got.String() != "4" {
		t.Errorf("NearestPrevPoint(5) = %v, expected 4", got)
	}
	if !s.IsValid(p7) {
		t.Error("IsValid(7) = false, expected true")
	}
	if s.IsValid(p5) {
		t.Error("IsValid(5) = true, expected false")
	}

	// out of bounds
	p14, _ := NewIntegerPoint("14")
	if got := s.NextPoint(p14); got != nil {
		t.Errorf("NextPoint(14) = %v, expected nil", got)
	}
	p1, _ := NewIntegerPoint("1")
	if got := s.PrevPoint(p1); got != nil {
		t.Errorf("PrevPoint(1) = %v, expected nil", got)
	}
}

func TestIntegerSequenceFormats(t *testing.T) {
	// Rn/START/END: n points evenly spread
	s := intSeq(t, "R3/1/7", "1", "10")
	if diff := deep.Equal(seqPoints(s, 10), []string{"1", "4", "7"}); diff != nil {
		t.Error(diff)
	}

	// Rn/START/INTV
	s = intSeq(t, "R3/1/P2", "1", "10")
	if diff := deep.Equal(seqPoints(s, 10), []string{"1", "3", "5"}); diff != nil {
		t.Error(diff)
	}

	// INTV/END: count backwards from the end point
	s = intSeq(t, "P2/10", "1", "10")
	if diff := deep.Equal(seqPoints(s, 10), []string{"2", "4", "6", "8", "10"}); diff != nil {
		t.Error(diff)
	}

	// Rn/INTV/END
	s = intSeq(t, "R3/P2/10", "1", "10")
	if diff := deep.Equal(seqPoints(s, 10), []string{"6", "8", "10"}); diff != nil {
		t.Error(diff)
	}

	// relative start point
	s = intSeq(t, "+P2/P3", "1", "12")
	if diff := deep.Equal(seqPoints(s, 10), []string{"3", "6", "9", "12"}); diff != nil {
		t.Error(diff)
	}

	if _, err := NewIntegerSequence("nonsense", "1", "10"); err == nil {
		t.Error("expected parse error, got nil")
	}
}

func TestIntegerSequenceZeroStep(t *testing.T) {
	// A zero-length interval can never advance: construction must fail
	// for every recurrence format, bounded or not.
	for _, expr := range []string{"P0", "R3/1/P0", "R3/P0/10"} {
		for _, ctxStop := range []string{"", "10"} {
			if _, err := NewIntegerSequence(expr, "1", ctxStop); err == nil {
				t.Errorf("NewIntegerSequence(%q, 1, %q): expected error, got nil", expr, ctxStop)
			} else if _, ok := err.(SequenceParsingError); !ok {
				t.Errorf("NewIntegerSequence(%q, 1, %q): error type %T, expected SequenceParsingError", expr, ctxStop, err)
			}
		}
	}

	// Rn/START/END degenerates to a zero step when START == END.
	if _, err := NewIntegerSequence("R3/5/5", "1", "10"); err == nil {
		t.Error("NewIntegerSequence(R3/5/5): expected error, got nil")
	}

	// A valid sequence still answers membership queries.
	s := intSeq(t, "P2", "1", "")
	p4, _ := NewIntegerPoint("4")
	if s.IsOnSequence(p4) {
		t.Error("IsOnSequence(4) = true on P2 from 1, expected false")
	}
}

func TestIntegerSequenceOneOff(t *testing.T) {
	s := intSeq(t, "R1/4", "1", "10")

	if diff := deep.Equal(seqPoints(s, 10), []string{"4"}); diff != nil {
		t.Error(diff)
	}
	if s.Interval() != nil {
		t.Errorf("Interval() = %v, expected nil", s.Interval())
	}
	p2, _ := NewIntegerPoint("2")
	p4, _ := NewIntegerPoint("4")
	if got := s.NextPoint(p2); got == nil || got.String() != "4" {
		t.Errorf("NextPoint(2) = %v, expected 4", got)
	}
	if got := s.NextPoint(p4); got != nil {
		t.Errorf("NextPoint(4) = %v, expected nil", got)
	}
	if !s.IsValid(p4) {
		t.Error("IsValid(4) = false, expected true")
	}
}

func TestIntegerSequenceExclusions(t *testing.T) {
	s := intSeq(t, "P1!3", "1", "5")
	if diff := deep.Equal(seqPoints(s, 10), []string{"1", "2", "4", "5"}); diff != nil {
		t.Error(diff)
	}
	p2, _ := NewIntegerPoint("2")
	p3, _ := NewIntegerPoint("3")
	if got := s.NextPoint(p2); got == nil || got.String() != "4" {
		t.Errorf("NextPoint(2) = %v, expected 4", got)
	}
	if s.IsValid(p3) {
		t.Error("IsValid(3) = true, expected false")
	}

	// multiple exclusions need parens
	s = intSeq(t, "P1!(2,3)", "1", "5")
	if diff := deep.Equal(seqPoints(s, 10), []string{"1", "4", "5"}); diff != nil {
		t.Error(diff)
	}

	// an excluded sequence, not just points
	s = intSeq(t, "P2!P6", "1", "12")
	if diff := deep.Equal(seqPoints(s, 10), []string{"3", "5", "9", "11"}); diff != nil {
		t.Error(diff)
	}
}

func TestIntegerSequenceEqual(t *testing.T) {
	a := intSeq(t, "P2", "1", "10")
	b := intSeq(t, "1/P2", "1", "10")
	c := intSeq(t, "P3", "1", "10")

	if !a.Equal(b) {
		t.Errorf("%s should equal %s", a, b)
	}
	if a.Equal(c) {
		t.Errorf("%s should not equal %s", a, c)
	}

	x := intSeq(t, "P1!3", "1", "5")
	y := intSeq(t, "P1!4", "1", "5")
	if x.Equal(y) {
		t.Errorf("%s should not equal %s", x, y)
	}
}

func TestFirstNPoints(t *testing.T) {
	s := intSeq(t, "P3", "1", "15")
	wfStart, _ := NewIntegerPoint("5")

	var got []string
	for _, p := range FirstNPoints(s, 3, wfStart) {
		got = append(got, p.String())
	}
	if diff := deep.Equal(got, []string{"7", "10", "13"}); diff != nil {
		t.Error(diff)
	}

	got = nil
	for _, p := range FirstNPoints(s, 2, nil) {
		got = append(got, p.String())
	}
	if diff := deep.Equal(got, []string{"1", "4"}); diff != nil {
		t.Error(diff)
	}
}
