// Copyright 2020-2022, Square, Inc.

// Package task provides task definitions (one per graph task name) and
// task instances (one per name and cycle point).
package task

import (
	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/prereq"
	"github.com/cylc/cylc-flow-sub007/proto"
)

// A Def is the definition shared by every instance of one task: its name
// and the workflow's bounding points, plus spawn-time bookkeeping.
type Def struct {
	Name string

	// InitialPoint is the workflow's initial cycle point, the base for
	// ^-offsets.
	InitialPoint cycling.Point

	// StartPoint is where this run actually starts (>= InitialPoint on a
	// warm start). Dependencies on cycles before it are pre-initial.
	StartPoint cycling.Point

	// MaxFuturePrereqOffset is the largest forward offset any of this
	// task's prerequisites reaches, maintained as prerequisites are
	// materialized. The scheduler reads it to size the runahead window.
	MaxFuturePrereqOffset cycling.Interval
}

// UpdateMaxFuturePrereqOffset raises MaxFuturePrereqOffset to offset if
// offset is larger.
func (d *Def) UpdateMaxFuturePrereqOffset(offset cycling.Interval) {
	if d.MaxFuturePrereqOffset == nil ||
		cycling.IntervalCmp(offset, d.MaxFuturePrereqOffset) > 0 {
		d.MaxFuturePrereqOffset = offset
	}
}

// A Proxy is one task instance: a Def bound to a concrete cycle point,
// with runtime state. Owned by one scheduling loop; not locked.
type Proxy struct {
	Def   *Def
	Point cycling.Point
	State byte // proto.STATE_*

	// Held tasks are administratively withheld from dispatch regardless
	// of prerequisite state.
	Held bool

	// Runahead tasks are spawned beyond the runahead window and not yet
	// released into the active pool.
	Runahead bool

	Prereqs []*prereq.Prerequisite
}

// ID returns the instance id, "point/name".
func (p *Proxy) ID() string {
	return p.Point.String() + "/" + p.Def.Name
}

// Ready reports whether the instance may be queued for dispatch: waiting,
// not held, not runahead-limited, and every prerequisite satisfied.
func (p *Proxy) Ready() bool {
	if p.State != proto.STATE_WAITING || p.Held || p.Runahead {
		return false
	}
	for _, pre := range p.Prereqs {
		if !pre.IsSatisfied() {
			return false
		}
	}
	return true
}

// Summary returns the API view of the instance.
func (p *Proxy) Summary() proto.TaskSummary {
	prereqs := make([]proto.PrereqStatus, 0, len(p.Prereqs))
	for _, pre := range p.Prereqs {
		prereqs = append(prereqs, pre.Status())
	}
	return proto.TaskSummary{
		Name:          p.Def.Name,
		Point:         p.Point.String(),
		State:         proto.StateName[p.State],
		Held:          p.Held,
		Runahead:      p.Runahead,
		Prerequisites: prereqs,
	}
}
