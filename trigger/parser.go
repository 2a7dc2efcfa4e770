// Copyright 2020-2022, Square, Inc.

package trigger

import (
	"fmt"
	"strings"

	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/graph"
)

var _ error = DependencyError{}

// DependencyError is a malformed dependency expression.
type DependencyError struct {
	Expr   string
	Reason string
}

func (e DependencyError) Error() string {
	return fmt.Sprintf("bad dependency %q: %s", e.Expr, e.Reason)
}

// outputAliases maps graph shorthand output names to canonical outputs.
var outputAliases = map[string]string{
	"succeed":     "succeeded",
	"fail":        "failed",
	"start":       "started",
	"submit":      "submitted",
	"submit-fail": "submit-failed",
	"finish":      "finished",
}

// StandardiseOutput canonicalizes a graph output name. No output means
// succeeded.
func StandardiseOutput(output string) string {
	if output == "" {
		return "succeeded"
	}
	if std, ok := outputAliases[output]; ok {
		return std
	}
	return output
}

// A Parser parses dependency expressions like
// "a & (b | c[-P1]):fail" into Dependency values. Node syntax and offset
// classification are delegated to the graph node parser.
type Parser struct {
	cy           *cycling.Cycler
	nodes        *graph.NodeParser
	initialPoint cycling.Point
}

func NewParser(cy *cycling.Cycler, nodes *graph.NodeParser, initialPoint cycling.Point) *Parser {
	return &Parser{
		cy:           cy,
		nodes:        nodes,
		initialPoint: initialPoint,
	}
}

// Parse parses one dependency expression. A leading "!" marks a suicide
// dependency.
func (p *Parser) Parse(expr string) (*Dependency, error) {
	s := strings.TrimSpace(expr)
	suicide := false
	if strings.HasPrefix(s, "!") {
		suicide = true
		s = strings.TrimSpace(s[1:])
	}
	if s == "" {
		return nil, DependencyError{expr, "empty expression"}
	}

	toks, err := tokenize(s)
	if err != nil {
		return nil, DependencyError{expr, err.Error()}
	}
	items, rest, err := p.parseItems(toks)
	if err != nil {
		return nil, DependencyError{expr, err.Error()}
	}
	if len(rest) > 0 {
		return nil, DependencyError{expr, "unbalanced parenthesis"}
	}
	return NewDependency(items, suicide), nil
}

// tokenize splits a dependency expression into node strings, operators,
// and parentheses. Whitespace inside a node's [offset] is preserved by
// the node parser, so it is safe to drop all whitespace between tokens.
func tokenize(s string) ([]string, error) {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	depth := 0 // bracket depth, so "foo[T00 +P1D]" stays one token
	for _, r := range s {
		switch {
		case r == '[':
			depth++
			cur.WriteRune(r)
		case r == ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("unbalanced bracket")
			}
			cur.WriteRune(r)
		case depth > 0:
			cur.WriteRune(r)
		case r == '(' || r == ')' || r == '&' || r == '|':
			flush()
			toks = append(toks, string(r))
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("unbalanced bracket")
	}
	flush()
	return toks, nil
}

// parseItems consumes tokens up to an unmatched ")" or the end, returning
// the items and the unconsumed tail (starting with the ")" if any).
func (p *Parser) parseItems(toks []string) ([]Item, []string, error) {
	var items []Item
	expectOperand := true
	for len(toks) > 0 {
		t := toks[0]
		switch t {
		case "(":
			if !expectOperand {
				return nil, nil, fmt.Errorf("missing operator before %q", t)
			}
			sub, rest, err := p.parseItems(toks[1:])
			if err != nil {
				return nil, nil, err
			}
			if len(rest) == 0 || rest[0] != ")" {
				return nil, nil, fmt.Errorf("unbalanced parenthesis")
			}
			if len(sub) == 0 {
				return nil, nil, fmt.Errorf("empty group")
			}
			items = append(items, Item{Sub: sub})
			toks = rest[1:]
			expectOperand = false
		case ")":
			if expectOperand {
				return nil, nil, fmt.Errorf("missing operand before %q", t)
			}
			return items, toks, nil
		case "&", "|":
			if expectOperand {
				return nil, nil, fmt.Errorf("missing operand before %q", t)
			}
			items = append(items, Item{Op: t})
			toks = toks[1:]
			expectOperand = true
		default:
			if !expectOperand {
				return nil, nil, fmt.Errorf("missing operator before %q", t)
			}
			node, err := p.nodes.Parse(t)
			if err != nil {
				return nil, nil, err
			}
			tr := NewTaskTrigger(p.cy, node.Name, node.Offset,
				StandardiseOutput(node.Output), node.OffsetIsFromICP,
				node.OffsetIsIrregular, node.OffsetIsAbsolute, p.initialPoint)
			items = append(items, Item{Trigger: tr})
			toks = toks[1:]
			expectOperand = false
		}
	}
	if expectOperand {
		return nil, nil, fmt.Errorf("trailing operator")
	}
	return items, nil, nil
}
