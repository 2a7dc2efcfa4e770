// Copyright 2020-2022, Square, Inc.

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cylc/cylc-flow-sub007/config"
	"github.com/cylc/cylc-flow-sub007/db"
	"github.com/cylc/cylc-flow-sub007/hold"
	"github.com/cylc/cylc-flow-sub007/proto"
	"github.com/cylc/cylc-flow-sub007/scheduler"
	"github.com/cylc/cylc-flow-sub007/scheduler/app"
)

func testAPI(t *testing.T) (*API, *scheduler.Pool) {
	t.Helper()
	wf, err := scheduler.LoadWorkflow(config.Workflow{
		Name:              "wf",
		CyclingMode:       "integer",
		InitialCyclePoint: "1",
		FinalCyclePoint:   "3",
		Graph: []config.GraphSection{
			{Recurrence: "P1", Dependencies: []string{"a => b"}},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	pool := scheduler.NewPool(scheduler.PoolConfig{
		Workflow: wf,
		Store:    db.NewMemoryStore(),
		Hold:     hold.NewManager(wf.Cycler, nil),
	})
	p, err := wf.Cycler.Point("1")
	if err != nil {
		t.Fatal(err)
	}
	if err := pool.SpawnCycle(p); err != nil {
		t.Fatal(err)
	}
	appCtx := app.Defaults()
	appCtx.Config = config.Defaults()
	return NewAPI(appCtx, pool), pool
}

func TestTaskList(t *testing.T) {
	api, _ := testAPI(t)
	ts := httptest.NewServer(api)
	defer ts.Close()

	resp, err := http.Get(ts.URL + API_ROOT + "tasks")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, expected 200", resp.StatusCode)
	}

	var sums []proto.TaskSummary
	if err := json.NewDecoder(resp.Body).Decode(&sums); err != nil {
		t.Fatal(err)
	}
	if len(sums) != 2 {
		t.Fatalf("got %d tasks, expected 2", len(sums))
	}
	if sums[0].Name != "a" || sums[0].Point != "1" {
		t.Errorf("first task = %s/%s, expected 1/a", sums[0].Point, sums[0].Name)
	}
}

func TestPrereqStatus(t *testing.T) {
	api, _ := testAPI(t)
	ts := httptest.NewServer(api)
	defer ts.Close()

	resp, err := http.Get(ts.URL + API_ROOT + "tasks/1/b/prerequisites")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, expected 200", resp.StatusCode)
	}

	var prereqs []proto.PrereqStatus
	if err := json.NewDecoder(resp.Body).Decode(&prereqs); err != nil {
		t.Fatal(err)
	}
	if len(prereqs) != 1 {
		t.Fatalf("got %d prerequisites, expected 1", len(prereqs))
	}
	if prereqs[0].Satisfied {
		t.Error("prerequisite satisfied, expected unsatisfied")
	}
	if len(prereqs[0].Conditions) != 1 || prereqs[0].Conditions[0].Message != "1/a succeeded" {
		t.Errorf("conditions = %+v, expected one condition on 1/a succeeded", prereqs[0].Conditions)
	}

	// unknown task
	resp, err = http.Get(ts.URL + API_ROOT + "tasks/9/zzz/prerequisites")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d for unknown task, expected 404", resp.StatusCode)
	}
}

func TestHoldRelease(t *testing.T) {
	api, pool := testAPI(t)
	ts := httptest.NewServer(api)
	defer ts.Close()

	put := func(path string) int {
		t.Helper()
		req, err := http.NewRequest(http.MethodPut, ts.URL+API_ROOT+path, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if code := put("tasks/1/a/hold"); code != http.StatusOK {
		t.Fatalf("hold status = %d, expected 200", code)
	}
	a, _ := pool.Get("1/a")
	if !a.Held {
		t.Fatal("1/a not held after PUT hold")
	}

	if code := put("tasks/1/a/release"); code != http.StatusOK {
		t.Fatalf("release status = %d, expected 200", code)
	}
	if a.Held {
		t.Error("1/a still held after PUT release")
	}
}
