// Copyright 2020-2022, Square, Inc.

package scheduler

import (
	"context"
	"testing"

	"github.com/go-test/deep"

	"github.com/cylc/cylc-flow-sub007/config"
	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/db"
	"github.com/cylc/cylc-flow-sub007/hold"
	"github.com/cylc/cylc-flow-sub007/prereq"
	"github.com/cylc/cylc-flow-sub007/proto"
	"github.com/cylc/cylc-flow-sub007/task"
)

func intWorkflow(t *testing.T, deps ...string) *Workflow {
	t.Helper()
	wf, err := LoadWorkflow(config.Workflow{
		Name:              "wf",
		CyclingMode:       "integer",
		InitialCyclePoint: "1",
		FinalCyclePoint:   "3",
		Graph: []config.GraphSection{
			{Recurrence: "P1", Dependencies: deps},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return wf
}

type testPool struct {
	*Pool
	wf     *Workflow
	store  *db.MemoryStore
	queued []string
}

func newTestPool(t *testing.T, deps ...string) *testPool {
	t.Helper()
	wf := intWorkflow(t, deps...)
	tp := &testPool{wf: wf, store: db.NewMemoryStore()}
	saveHeld := func(held []proto.HeldTask) error {
		return tp.store.SaveHeld(context.Background(), held)
	}
	tp.Pool = NewPool(PoolConfig{
		Workflow: wf,
		Store:    tp.store,
		Hold:     hold.NewManager(wf.Cycler, saveHeld),
		Queue:    func(p *task.Proxy) { tp.queued = append(tp.queued, p.ID()) },
	})
	return tp
}

func point(t *testing.T, wf *Workflow, v string) cycling.Point {
	t.Helper()
	p, err := wf.Cycler.Point(v)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadWorkflow(t *testing.T) {
	wf := intWorkflow(t, "a => b")

	for _, name := range []string{"a", "b"} {
		if _, ok := wf.Defs[name]; !ok {
			t.Errorf("no def for %s", name)
		}
	}
	var targets []string
	for _, e := range wf.Edges {
		targets = append(targets, e.Target)
	}
	if diff := deep.Equal(targets, []string{"b", "a"}); diff != nil {
		t.Error(diff)
	}
	if wf.Edges[0].Dep == nil {
		t.Error("edge to b has no dependency")
	}
	if wf.Edges[1].Dep != nil {
		t.Error("source edge to a has a dependency")
	}
	if !wf.Edges[0].Seq.IsValid(point(t, wf, "2")) {
		t.Error("sequence not valid at 2")
	}
	if wf.Edges[0].Seq.IsValid(point(t, wf, "4")) {
		t.Error("sequence valid past the final point")
	}
}

func TestLoadWorkflowErrors(t *testing.T) {
	_, err := LoadWorkflow(config.Workflow{
		CyclingMode:       "360day",
		InitialCyclePoint: "1",
	})
	if err == nil {
		t.Error("expected error for unknown cycling mode")
	}

	bad := []string{"a => ", "!a", "a & & b => c"}
	for _, line := range bad {
		_, err := LoadWorkflow(config.Workflow{
			CyclingMode:       "integer",
			InitialCyclePoint: "1",
			Graph: []config.GraphSection{
				{Recurrence: "P1", Dependencies: []string{line}},
			},
		})
		if err == nil {
			t.Errorf("graph line %q did not error", line)
		}
	}
}

func TestPoolSpawnAndOutputs(t *testing.T) {
	tp := newTestPool(t, "a => b")
	if err := tp.SpawnCycle(point(t, tp.wf, "1")); err != nil {
		t.Fatal(err)
	}

	// a has no prerequisites and queues at spawn; b waits on a
	if diff := deep.Equal(tp.queued, []string{"1/a"}); diff != nil {
		t.Fatal(diff)
	}
	b, ok := tp.Get("1/b")
	if !ok {
		t.Fatal("1/b not in pool")
	}
	if b.Ready() {
		t.Fatal("1/b ready before a completed")
	}

	out := prereq.Tuple{Point: "1", Task: "a", Output: "succeeded"}
	consumed := tp.DistributeOutputs([]prereq.Tuple{out}, proto.RUN_MODE_LIVE, false)
	if diff := deep.Equal(consumed, []prereq.Tuple{out}); diff != nil {
		t.Error(diff)
	}
	if diff := deep.Equal(tp.queued, []string{"1/a", "1/b"}); diff != nil {
		t.Error(diff)
	}

	// satisfaction was persisted for restart recovery
	rows, err := tp.store.LoadSatisfied(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	expect := []proto.SatisfiedOutput{
		{Owner: "1/b", Point: "1", Task: "a", Output: "succeeded"},
	}
	if diff := deep.Equal(rows, expect); diff != nil {
		t.Error(diff)
	}
}

func TestPoolRestore(t *testing.T) {
	store := db.NewMemoryStore()
	ctx := context.Background()
	err := store.SaveSatisfied(ctx, "1/b", []proto.SatisfiedOutput{
		{Owner: "1/b", Point: "1", Task: "a", Output: "succeeded"},
	})
	if err != nil {
		t.Fatal(err)
	}

	wf := intWorkflow(t, "a => b")
	var queued []string
	p := NewPool(PoolConfig{
		Workflow: wf,
		Store:    store,
		Hold:     hold.NewManager(wf.Cycler, nil),
		Queue:    func(t *task.Proxy) { queued = append(queued, t.ID()) },
	})
	if err := p.Restore(ctx); err != nil {
		t.Fatal(err)
	}

	b, err := p.Spawn("b", point(t, wf, "1"))
	if err != nil {
		t.Fatal(err)
	}
	s, ok := b.Prereqs[0].State(prereq.Tuple{Point: "1", Task: "a", Output: "succeeded"})
	if !ok || s != prereq.SatisfiedFromDB {
		t.Errorf("restored entry state = %q, %t; expected satisfied from database", s, ok)
	}
	// fully restored, so it queues straight from spawn
	if diff := deep.Equal(queued, []string{"1/b"}); diff != nil {
		t.Error(diff)
	}
}

func TestPoolHoldOnSpawn(t *testing.T) {
	tp := newTestPool(t, "a => b")

	tp.HoldTask("a", "1")
	if err := tp.SpawnCycle(point(t, tp.wf, "1")); err != nil {
		t.Fatal(err)
	}
	a, _ := tp.Get("1/a")
	if !a.Held {
		t.Fatal("1/a not held at spawn")
	}
	if len(tp.queued) != 0 {
		t.Fatalf("queued = %v, expected nothing while held", tp.queued)
	}

	tp.ReleaseTask("a", "1")
	if diff := deep.Equal(tp.queued, []string{"1/a"}); diff != nil {
		t.Error(diff)
	}

	// hold survives a restart via the store
	held, err := tp.store.LoadHeld(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(held) != 0 {
		t.Errorf("LoadHeld() = %v after release, expected nothing", held)
	}
}

func TestPoolRunahead(t *testing.T) {
	tp := newTestPool(t, "a => b")
	tp.ReleaseRunahead(point(t, tp.wf, "1"))

	for _, v := range []string{"1", "2"} {
		if _, err := tp.Spawn("a", point(t, tp.wf, v)); err != nil {
			t.Fatal(err)
		}
	}
	// 2/a is beyond the bound: spawned flagged, not queued
	if diff := deep.Equal(tp.queued, []string{"1/a"}); diff != nil {
		t.Fatal(diff)
	}
	a2, _ := tp.Get("2/a")
	if !a2.Runahead {
		t.Fatal("2/a not runahead-flagged")
	}

	tp.ReleaseRunahead(point(t, tp.wf, "2"))
	if diff := deep.Equal(tp.queued, []string{"1/a", "2/a"}); diff != nil {
		t.Error(diff)
	}
}

func TestPoolSuicide(t *testing.T) {
	tp := newTestPool(t, "a => b", "a:fail => !b")
	if err := tp.SpawnCycle(point(t, tp.wf, "1")); err != nil {
		t.Fatal(err)
	}
	if _, ok := tp.Get("1/b"); !ok {
		t.Fatal("1/b not in pool")
	}

	tp.DistributeOutputs([]prereq.Tuple{{Point: "1", Task: "a", Output: "failed"}},
		proto.RUN_MODE_LIVE, false)
	if _, ok := tp.Get("1/b"); ok {
		t.Error("1/b still in pool after suicide dependency satisfied")
	}
}

func TestPoolSummaries(t *testing.T) {
	tp := newTestPool(t, "a => b")
	if err := tp.SpawnCycle(point(t, tp.wf, "1")); err != nil {
		t.Fatal(err)
	}
	tp.HoldTask("b", "2") // future hold, not spawned

	sums := tp.Summaries()
	var ids []string
	for _, s := range sums {
		ids = append(ids, s.Point+"/"+s.Name)
	}
	if diff := deep.Equal(ids, []string{"1/a", "1/b", "2/b"}); diff != nil {
		t.Error(diff)
	}
	last := sums[len(sums)-1]
	if !last.Held || last.State != proto.StateName[proto.STATE_WAITING] {
		t.Errorf("held pseudo-task = %+v, expected held waiting", last)
	}
}
