// Copyright 2020-2022, Square, Inc.

// Package graph parses raw dependency-graph node references of the form
// "name[offset]:output" into structured, cached values.
package graph

import (
	"fmt"
	"regexp"
	"strings"

	cmap "github.com/orcaman/concurrent-map"

	"github.com/cylc/cylc-flow-sub007/cycling"
)

var _ error = NodeError{}

// NodeError is a graph-parse failure, carrying the offending raw node
// string.
type NodeError struct {
	Node   string
	Reason string
}

func (e NodeError) Error() string {
	return fmt.Sprintf("invalid graph node %q: %s", e.Node, e.Reason)
}

// A Node is one parsed upstream reference in the dependency graph: the
// task name, an optional cycle point offset, and an optional output
// selector. Offset kind flags are mutually exclusive except that a
// from-ICP offset may also be irregular.
type Node struct {
	Name   string
	Offset string // standardised unless irregular; "" if none
	Output string // raw output selector; "" if none

	// OffsetIsFromICP marks a "^"-prefixed offset: relative to the
	// workflow's initial cycle point rather than the task's own point.
	OffsetIsFromICP bool

	// OffsetIsIrregular marks an offset that is not a plain interval
	// (mixed absolute+duration text, or a truncated point like "T00").
	// Irregular offsets are left unstandardised.
	OffsetIsIrregular bool

	// OffsetIsAbsolute marks an offset that is actually a point ("1",
	// "2000"), referencing a fixed cycle rather than a relative one.
	OffsetIsAbsolute bool
}

// name, optional [offset], optional :output
var recNode = regexp.MustCompile(`^([\w.-]+)(?:\[([^\]]*)\])?(?::([\w-]+))?$`)

// A NodeParser parses graph nodes for one workflow, memoizing results by
// the raw node string. Node parsing is a pure function over the immutable
// workflow config, so entries never go stale; the cache is owned by the
// parser instance and discarded with it on config reload.
type NodeParser struct {
	cy    *cycling.Cycler
	cache cmap.ConcurrentMap
}

func NewNodeParser(cy *cycling.Cycler) *NodeParser {
	return &NodeParser{
		cy:    cy,
		cache: cmap.New(),
	}
}

// Parse parses a raw graph node string.
func (p *NodeParser) Parse(raw string) (Node, error) {
	if v, ok := p.cache.Get(raw); ok {
		return v.(Node), nil
	}
	node, err := p.parse(raw)
	if err != nil {
		return Node{}, err
	}
	p.cache.Set(raw, node)
	return node, nil
}

// ClearCache discards all memoized nodes.
func (p *NodeParser) ClearCache() {
	p.cache = cmap.New()
}

func (p *NodeParser) parse(raw string) (Node, error) {
	m := recNode.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Node{}, NodeError{raw, "expected name[offset]:output"}
	}
	node := Node{Name: m[1], Output: m[3]}

	offset := strings.ReplaceAll(m[2], " ", "")
	if strings.HasPrefix(offset, "^") {
		node.OffsetIsFromICP = true
		offset = offset[1:]
		if offset == "" {
			// bare "^": the initial point itself
			node.Offset = p.cy.NullInterval().String()
			return node, nil
		}
	}
	if offset == "" {
		return node, nil
	}

	if iv, err := p.cy.Interval(offset); err == nil {
		// regular relative offset
		node.Offset = iv.String()
		return node, nil
	}
	if std, err := p.cy.StandardisePointString(offset, false); err == nil {
		if node.OffsetIsFromICP {
			return Node{}, NodeError{raw, "absolute offset cannot be ^-prefixed"}
		}
		node.Offset = std
		node.OffsetIsAbsolute = true
		return node, nil
	}
	if p.cy.Mode() != cycling.TypeISO8601 {
		return Node{}, NodeError{raw, fmt.Sprintf("unrecognized offset %q", offset)}
	}
	// Irregular: mixed absolute+duration or truncated text. Validate it
	// resolves against some point, but keep the raw text (it cannot be
	// reparsed as a pure duration).
	probe, err := p.cy.Point("20000101T00")
	if err != nil {
		return Node{}, err
	}
	if _, err := p.cy.PointRelative(offset, probe); err != nil {
		return Node{}, NodeError{raw, fmt.Sprintf("unrecognized offset %q", offset)}
	}
	node.Offset = offset
	node.OffsetIsIrregular = true
	return node, nil
}
