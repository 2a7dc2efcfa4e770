// Copyright 2020-2022, Square, Inc.

// Package scheduler glues the cycling core together: it loads a workflow
// from config and runs the task pool (spawning, output distribution,
// holds, runahead).
package scheduler

import (
	"fmt"
	"strings"

	"github.com/cylc/cylc-flow-sub007/config"
	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/graph"
	"github.com/cylc/cylc-flow-sub007/task"
	"github.com/cylc/cylc-flow-sub007/trigger"
)

var _ error = GraphError{}

// GraphError is a malformed graph-edge line in the workflow config.
type GraphError struct {
	Line   string
	Reason string
}

func (e GraphError) Error() string {
	return fmt.Sprintf("bad graph line %q: %s", e.Line, e.Reason)
}

// An Edge binds one downstream task to its dependency expression on one
// recurrence. Dep is nil for source tasks that only appear upstream.
type Edge struct {
	Seq    cycling.Sequence
	Dep    *trigger.Dependency
	Target string
}

// A Workflow is the parsed static configuration of one workflow: the
// cycler, the bounding points, task definitions, and graph edges.
type Workflow struct {
	Name          string
	Cycler        *cycling.Cycler
	InitialPoint  cycling.Point
	FinalPoint    cycling.Point    // nil if none
	RunaheadLimit cycling.Interval // nil if none

	Defs  map[string]*task.Def
	Edges []Edge

	sourceSeen map[string]bool // dedupe for upstream-only edges
}

// LoadWorkflow parses the workflow section of the config: cycling mode,
// bounding points, and the graph. Each graph line is a chain,
// "a & b => c => !d", parsed left to right; every "=>" makes edges from
// the expression on its left to each "&"-joined target on its right. A
// "!"-prefixed target gets a suicide dependency.
func LoadWorkflow(cfg config.Workflow) (*Workflow, error) {
	cy, err := cycling.NewCycler(cfg.CyclingMode, cycling.Options{
		TimeZone: cfg.TimeZone,
		UTCMode:  cfg.UTCMode,
	})
	if err != nil {
		return nil, err
	}

	icp, err := cy.Point(cfg.InitialCyclePoint)
	if err != nil {
		return nil, err
	}
	w := &Workflow{
		Name:         cfg.Name,
		Cycler:       cy,
		InitialPoint: icp,
		Defs:         map[string]*task.Def{},
		sourceSeen:   map[string]bool{},
	}
	if cfg.FinalCyclePoint != "" {
		w.FinalPoint, err = cy.Point(cfg.FinalCyclePoint)
		if err != nil {
			return nil, err
		}
	}
	if cfg.RunaheadLimit != "" {
		w.RunaheadLimit, err = cy.Interval(cfg.RunaheadLimit)
		if err != nil {
			return nil, err
		}
	}

	parser := trigger.NewParser(cy, graph.NewNodeParser(cy), icp)
	for _, sec := range cfg.Graph {
		seq, err := cy.Sequence(sec.Recurrence, icp.String(), w.finalPointStr())
		if err != nil {
			return nil, err
		}
		for _, line := range sec.Dependencies {
			if err := w.parseLine(parser, seq, line); err != nil {
				return nil, err
			}
		}
	}
	return w, nil
}

func (w *Workflow) finalPointStr() string {
	if w.FinalPoint == nil {
		return ""
	}
	return w.FinalPoint.String()
}

func (w *Workflow) parseLine(parser *trigger.Parser, seq cycling.Sequence, line string) error {
	parts := strings.Split(line, "=>")
	if len(parts) == 1 {
		// no dependencies: every listed task just cycles on the sequence
		for _, name := range splitTargets(parts[0]) {
			if strings.HasPrefix(name, "!") {
				return GraphError{line, "suicide marker on a task with no upstreams"}
			}
			w.addEdge(seq, nil, name)
		}
		return nil
	}
	for i := 1; i < len(parts); i++ {
		// a leading "!" on a chain link marks the target, not the trigger
		lhs := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(parts[i-1]), "!"))
		targets := splitTargets(parts[i])
		if lhs == "" || len(targets) == 0 {
			return GraphError{line, "empty side of =>"}
		}
		for _, target := range targets {
			expr := lhs
			if strings.HasPrefix(target, "!") {
				target = strings.TrimSpace(target[1:])
				expr = "! " + expr
			}
			dep, err := parser.Parse(expr)
			if err != nil {
				return err
			}
			w.addEdge(seq, dep, target)
			// upstream tasks cycle on the sequence too, with no prereqs
			// of their own (unless another edge targets them)
			for _, tr := range dep.Triggers() {
				w.addSourceEdge(seq, tr.Task)
			}
		}
	}
	return nil
}

// splitTargets splits a right-hand side like "b & !c" into task names.
// Intermediate chain links may carry trigger syntax ("c:fail => d");
// only the bare name identifies the target task.
func splitTargets(s string) []string {
	var targets []string
	for _, part := range strings.Split(s, "&") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		suicide := strings.HasPrefix(part, "!")
		if suicide {
			part = strings.TrimSpace(part[1:])
		}
		name := part
		if i := strings.IndexAny(name, "[:"); i >= 0 {
			name = name[:i]
		}
		if suicide {
			name = "!" + name
		}
		targets = append(targets, name)
	}
	return targets
}

func (w *Workflow) addEdge(seq cycling.Sequence, dep *trigger.Dependency, target string) {
	w.def(target)
	w.Edges = append(w.Edges, Edge{Seq: seq, Dep: dep, Target: target})
}

func (w *Workflow) addSourceEdge(seq cycling.Sequence, name string) {
	key := seq.String() + "|" + name
	if w.sourceSeen[key] {
		return
	}
	w.sourceSeen[key] = true
	w.addEdge(seq, nil, name)
}

func (w *Workflow) def(name string) *task.Def {
	if d, ok := w.Defs[name]; ok {
		return d
	}
	d := &task.Def{
		Name:         name,
		InitialPoint: w.InitialPoint,
		StartPoint:   w.InitialPoint,
	}
	w.Defs[name] = d
	return d
}
