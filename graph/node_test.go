// Copyright 2020-2022, Square, Inc.

package graph

import (
	"testing"

	"github.com/go-test/deep"

	"github.com/cylc/cylc-flow-sub007/cycling"
)

func intParser(t *testing.T) *NodeParser {
	t.Helper()
	cy, err := cycling.NewCycler("integer", cycling.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return NewNodeParser(cy)
}

func isoParser(t *testing.T) *NodeParser {
	t.Helper()
	cy, err := cycling.NewCycler("iso8601", cycling.Options{UTCMode: true})
	if err != nil {
		t.Fatal(err)
	}
	return NewNodeParser(cy)
}

func TestParseNodeInteger(t *testing.T) {
	p := intParser(t)

	for raw, expect := range map[string]Node{
		"foo":            {Name: "foo"},
		"foo:succeeded":  {Name: "foo", Output: "succeeded"},
		"foo[-P1]":       {Name: "foo", Offset: "-P1"},
		"foo[+P2]:fail":  {Name: "foo", Offset: "P2", Output: "fail"},
		"foo[1]":         {Name: "foo", Offset: "1", OffsetIsAbsolute: true},
		"foo[^]":         {Name: "foo", Offset: "P0", OffsetIsFromICP: true},
		"foo[^+P2]:out":  {Name: "foo", Offset: "P2", Output: "out", OffsetIsFromICP: true},
		"my-task.2[-P1]": {Name: "my-task.2", Offset: "-P1"},
	} {
		node, err := p.Parse(raw)
		if err != nil {
			t.Errorf("Parse(%q): %s", raw, err)
			continue
		}
		if diff := deep.Equal(node, expect); diff != nil {
			t.Errorf("Parse(%q): %v", raw, diff)
		}
	}

	for _, bad := range []string{"", "foo[", "foo[-P1", "foo[xyz]", "foo bar", "foo[^1]"} {
		if _, err := p.Parse(bad); err == nil {
			t.Errorf("Parse(%q): expected error, got nil", bad)
		}
	}
}

func TestParseNodeISO8601(t *testing.T) {
	p := isoParser(t)

	for raw, expect := range map[string]Node{
		"foo[-PT6H]":     {Name: "foo", Offset: "-PT6H"},
		"foo[-P1D]:done": {Name: "foo", Offset: "-P1D", Output: "done"},
		"foo[2000]":      {Name: "foo", Offset: "20000101T0000Z", OffsetIsAbsolute: true},
		"foo[T00]":       {Name: "foo", Offset: "T00", OffsetIsIrregular: true},
		"foo[20000101T00+P1D]": {
			Name: "foo", Offset: "20000101T00+P1D", OffsetIsIrregular: true,
		},
		"foo[^-PT6H]": {Name: "foo", Offset: "-PT6H", OffsetIsFromICP: true},
	} {
		node, err := p.Parse(raw)
		if err != nil {
			t.Errorf("Parse(%q): %s", raw, err)
			continue
		}
		if diff := deep.Equal(node, expect); diff != nil {
			t.Errorf("Parse(%q): %v", raw, diff)
		}
	}

	_, err := p.Parse("foo[junk]")
	if err == nil {
		t.Fatal("Parse(foo[junk]): expected error, got nil")
	}
	if _, ok := err.(NodeError); !ok {
		t.Errorf("error type %T, expected NodeError", err)
	}
}

func TestParseNodeMemoized(t *testing.T) {
	p := intParser(t)

	a, err := p.Parse("foo[-P1]:x")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Parse("foo[-P1]:x")
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(a, b); diff != nil {
		t.Error(diff)
	}
	if p.cache.Count() != 1 {
		t.Errorf("cache count = %d, expected 1", p.cache.Count())
	}

	p.ClearCache()
	if p.cache.Count() != 0 {
		t.Errorf("cache count after clear = %d, expected 0", p.cache.Count())
	}
}
