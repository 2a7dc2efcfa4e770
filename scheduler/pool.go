// Copyright 2020-2022, Square, Inc.

package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"

	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/db"
	"github.com/cylc/cylc-flow-sub007/hold"
	"github.com/cylc/cylc-flow-sub007/prereq"
	"github.com/cylc/cylc-flow-sub007/proto"
	"github.com/cylc/cylc-flow-sub007/retry"
	"github.com/cylc/cylc-flow-sub007/task"
)

const (
	persistTries = 3
	persistWait  = 500 * time.Millisecond
)

// PoolConfig is everything a Pool needs: the parsed workflow, a Store for
// restart state, the hold manager, and the dispatch-queue callback.
type PoolConfig struct {
	Workflow *Workflow
	Store    db.Store
	Hold     *hold.Manager
	Queue    func(*task.Proxy)
}

// A Pool holds the active task instances of one workflow run. Spawning,
// output distribution, holds, and runahead release all go through it.
// Owned by the scheduling loop; not locked.
type Pool struct {
	runID string
	wf    *Workflow
	store db.Store
	hold  *hold.Manager
	queue func(*task.Proxy)
	// --
	tasks    map[string]*task.Proxy            // by instance id
	ids      []string                          // spawn order
	suicides map[string][]*prereq.Prerequisite // by instance id
	restored map[string][]proto.SatisfiedOutput
	bound    cycling.Point // runahead bound; nil means unlimited
}

func NewPool(cfg PoolConfig) *Pool {
	p := &Pool{
		runID:    xid.New().String(),
		wf:       cfg.Workflow,
		store:    cfg.Store,
		hold:     cfg.Hold,
		queue:    cfg.Queue,
		tasks:    map[string]*task.Proxy{},
		suicides: map[string][]*prereq.Prerequisite{},
		restored: map[string][]proto.SatisfiedOutput{},
	}
	log.Infof("task pool %s created for workflow %s", p.runID, p.wf.Name)
	return p
}

// RunID identifies this pool instance in logs and status output.
func (p *Pool) RunID() string {
	return p.runID
}

// Restore loads persisted restart state: the hold store, and satisfied
// prerequisite entries replayed into tasks as they spawn.
func (p *Pool) Restore(ctx context.Context) error {
	if p.store == nil {
		return nil
	}
	held, err := p.store.LoadHeld(ctx)
	if err != nil {
		return err
	}
	p.hold.LoadFromDB(held)

	satisfied, err := p.store.LoadSatisfied(ctx)
	if err != nil {
		return err
	}
	for _, o := range satisfied {
		p.restored[o.Owner] = append(p.restored[o.Owner], o)
	}
	log.Infof("restored %d held tasks, %d satisfied outputs", len(held), len(satisfied))
	return nil
}

// Spawn instantiates the task at point: materializes its prerequisites
// from the graph edges whose sequence is valid there, replays restored
// satisfied entries, and applies any pending hold. Ready tasks go
// straight to the queue. Spawning an existing instance returns it.
func (p *Pool) Spawn(name string, point cycling.Point) (*task.Proxy, error) {
	id := point.String() + "/" + name
	if t, ok := p.tasks[id]; ok {
		return t, nil
	}
	def, ok := p.wf.Defs[name]
	if !ok {
		return nil, fmt.Errorf("no such task: %s", name)
	}

	t := &task.Proxy{
		Def:      def,
		Point:    point,
		State:    proto.STATE_WAITING,
		Held:     p.hold.IsHeld(name, point.String()),
		Runahead: p.bound != nil && cycling.PointCmp(point, p.bound) > 0,
	}
	valid := false
	for _, e := range p.wf.Edges {
		if e.Target != name || !e.Seq.IsValid(point) {
			continue
		}
		valid = true
		if e.Dep == nil {
			continue
		}
		pre, err := e.Dep.GetPrerequisite(point, def)
		if err != nil {
			return nil, err
		}
		p.replay(id, pre)
		if e.Dep.Suicide {
			p.suicides[id] = append(p.suicides[id], pre)
		} else {
			t.Prereqs = append(t.Prereqs, pre)
		}
	}
	if !valid {
		return nil, fmt.Errorf("task %s is not valid at %s", name, point)
	}

	p.tasks[id] = t
	p.ids = append(p.ids, id)
	log.Infof("spawned %s (held=%t)", id, t.Held)
	if t.Ready() {
		p.dispatch(t)
	}
	return t, nil
}

// SpawnCycle spawns every task whose sequence is valid at point.
func (p *Pool) SpawnCycle(point cycling.Point) error {
	seen := map[string]bool{}
	for _, e := range p.wf.Edges {
		if seen[e.Target] || !e.Seq.IsValid(point) {
			continue
		}
		seen[e.Target] = true
		if _, err := p.Spawn(e.Target, point); err != nil {
			return err
		}
	}
	return nil
}

// replay re-satisfies restored entries through the same Set entry point
// used at runtime, tagged with database provenance.
func (p *Pool) replay(id string, pre *prereq.Prerequisite) {
	for _, o := range p.restored[id] {
		t := prereq.Tuple{Point: o.Point, Task: o.Task, Output: o.Output}
		if s, ok := pre.State(t); ok && !s.Satisfied() {
			pre.Set(t, prereq.SatisfiedFromDB)
		}
	}
}

// Get returns the task instance with the given id ("point/name").
func (p *Pool) Get(id string) (*task.Proxy, bool) {
	t, ok := p.tasks[id]
	return t, ok
}

// DistributeOutputs offers newly completed upstream outputs to every task
// in the pool. Tasks whose prerequisites complete are queued; tasks whose
// suicide dependency completes are removed. Returns the outputs consumed
// by at least one task.
func (p *Pool) DistributeOutputs(outputs []prereq.Tuple, mode string, forced bool) []prereq.Tuple {
	consumed := map[prereq.Tuple]bool{}
	var order []prereq.Tuple
	for _, id := range append([]string{}, p.ids...) {
		t, ok := p.tasks[id]
		if !ok {
			continue // removed by an earlier suicide
		}
		changed := false
		for _, pre := range t.Prereqs {
			for _, m := range pre.SatisfyMe(outputs, mode, forced) {
				changed = true
				if !consumed[m] {
					consumed[m] = true
					order = append(order, m)
				}
			}
		}
		for _, pre := range p.suicides[id] {
			pre.SatisfyMe(outputs, mode, forced)
			if pre.IsSatisfied() {
				log.Infof("removing %s: suicide dependency satisfied", id)
				p.remove(id)
				changed = false
				break
			}
		}
		if changed {
			p.saveSatisfied(t)
			if t.Ready() {
				p.dispatch(t)
			}
		}
	}
	return order
}

// ReleaseRunahead moves the runahead bound: tasks at or before it are
// unblocked (and queued if ready), tasks beyond it are flagged. The bound
// also applies to future spawns.
func (p *Pool) ReleaseRunahead(bound cycling.Point) {
	p.bound = bound
	for _, id := range p.ids {
		t, ok := p.tasks[id]
		if !ok {
			continue
		}
		beyond := cycling.PointCmp(t.Point, bound) > 0
		if beyond == t.Runahead {
			continue
		}
		t.Runahead = beyond
		if !beyond && t.Ready() {
			p.dispatch(t)
		}
	}
}

// HoldTask holds one task by name and point string. Active instances are
// held directly; unspawned ones are recorded for hold-on-spawn.
func (p *Pool) HoldTask(name, point string) {
	if t, ok := p.tasks[point+"/"+name]; ok {
		p.hold.HoldActiveTasks([]*task.Proxy{t})
		return
	}
	p.hold.HoldFutureTasks([]hold.Item{{Name: name, Point: point}})
}

// ReleaseTask releases one task by name and point string.
func (p *Pool) ReleaseTask(name, point string) {
	if t, ok := p.tasks[point+"/"+name]; ok {
		p.hold.ReleaseActiveTasks([]*task.Proxy{t}, p.queue)
		return
	}
	p.hold.ReleaseFutureTasks([]hold.Item{{Name: name, Point: point}})
}

// Summaries returns the API view of the pool: active tasks in spawn
// order, then held future tasks from the hold store's pseudo-pool.
func (p *Pool) Summaries() []proto.TaskSummary {
	var out []proto.TaskSummary
	ids := append([]string{}, p.ids...)
	sort.Strings(ids)
	for _, id := range ids {
		if t, ok := p.tasks[id]; ok {
			out = append(out, t.Summary())
		}
	}
	for _, t := range p.hold.AsPool() {
		if _, active := p.tasks[t.ID()]; !active {
			out = append(out, t.Summary())
		}
	}
	return out
}

func (p *Pool) dispatch(t *task.Proxy) {
	if p.queue != nil {
		p.queue(t)
	}
}

func (p *Pool) remove(id string) {
	delete(p.tasks, id)
	delete(p.suicides, id)
}

// saveSatisfied persists one task's satisfied prerequisite entries, with
// retries. Failures are logged; memory stays authoritative.
func (p *Pool) saveSatisfied(t *task.Proxy) {
	if p.store == nil {
		return
	}
	id := t.ID()
	var rows []proto.SatisfiedOutput
	for _, pre := range t.Prereqs {
		for _, tuple := range pre.Tuples() {
			if s, _ := pre.State(tuple); s.Satisfied() {
				rows = append(rows, proto.SatisfiedOutput{
					Owner:  id,
					Point:  tuple.Point,
					Task:   tuple.Task,
					Output: tuple.Output,
				})
			}
		}
	}
	err := retry.Do(persistTries, persistWait,
		func() error { return p.store.SaveSatisfied(context.Background(), id, rows) },
		func(err error) { log.Warnf("error saving prerequisites of %s (will retry): %s", id, err) },
	)
	if err != nil {
		log.Errorf("failed to save prerequisites of %s: %s", id, err)
	}
}
