// Copyright 2020-2022, Square, Inc.

// Package server bootstraps and runs the scheduler.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/hold"
	"github.com/cylc/cylc-flow-sub007/proto"
	"github.com/cylc/cylc-flow-sub007/scheduler"
	"github.com/cylc/cylc-flow-sub007/scheduler/api"
	"github.com/cylc/cylc-flow-sub007/scheduler/app"
	"github.com/cylc/cylc-flow-sub007/task"
)

type Server struct {
	appCtx app.Context
	api    *api.API
	pool   *scheduler.Pool

	stopMux    sync.Mutex
	stopped    bool
	apiStopped chan struct{}
}

func NewServer(appCtx app.Context) *Server {
	return &Server{
		appCtx:     appCtx,
		apiStopped: make(chan struct{}),
	}
}

// Boot sets up the server: config, workflow, store, task pool, API. It
// must be called before Run.
func (s *Server) Boot() error {
	// Only run Boot once.
	if s.api != nil {
		return nil
	}

	// Either both or neither RunAPI and StopAPI hooks must be provided.
	if (s.appCtx.Hooks.RunAPI == nil) != (s.appCtx.Hooks.StopAPI == nil) {
		return fmt.Errorf("only one of RunAPI and StopAPI hooks provided - either both or neither must be provided")
	}

	cfg, err := s.appCtx.Hooks.LoadConfig(s.appCtx)
	if err != nil {
		return fmt.Errorf("error loading config: %s", err)
	}
	s.appCtx.Config = cfg
	cfgstr, _ := json.MarshalIndent(cfg, "", "  ")
	log.Printf("Config: %s", cfgstr)

	wf, err := scheduler.LoadWorkflow(cfg.Workflow)
	if err != nil {
		return fmt.Errorf("error loading workflow: %s", err)
	}

	store, err := s.appCtx.Factories.MakeStore(s.appCtx)
	if err != nil {
		return fmt.Errorf("error making store: %s", err)
	}

	holdMgr := hold.NewManager(wf.Cycler, func(held []proto.HeldTask) error {
		return store.SaveHeld(context.Background(), held)
	})

	s.pool = scheduler.NewPool(scheduler.PoolConfig{
		Workflow: wf,
		Store:    store,
		Hold:     holdMgr,
		Queue:    queueReady,
	})
	if err := s.pool.Restore(context.Background()); err != nil {
		return fmt.Errorf("error restoring state: %s", err)
	}
	if err := spawnInitial(s.pool, wf); err != nil {
		return fmt.Errorf("error spawning initial cycles: %s", err)
	}

	s.api = api.NewAPI(s.appCtx, s.pool)
	return nil
}

// Run runs the scheduler API in the foreground. It returns when the API
// stops running, from an error or a call to Stop. If a custom RunAPI hook
// has been provided, it is called instead of the default api.Run.
//
// If stopOnSignal = true, the server listens for TERM and INT signals and
// calls Stop when one arrives. Else the caller must call Stop.
func (s *Server) Run(stopOnSignal bool) error {
	if s.api == nil {
		panic("Server.Run called before Server.Boot")
	}
	if s.stopped {
		return fmt.Errorf("server stopped")
	}

	if stopOnSignal {
		go s.waitForShutdown()
	}

	var err error
	if s.appCtx.Hooks.RunAPI != nil {
		err = s.appCtx.Hooks.RunAPI()
	} else {
		err = s.api.Run()
	}

	// If the server was stopped (as opposed to some error within the API),
	// wait until the API is done shutting down before returning.
	if s.stopped {
		<-s.apiStopped
		return nil
	}
	if err != nil {
		return fmt.Errorf("error from API: %s", err)
	}
	return nil
}

// Stop stops the server. Once stopped it cannot be reused; future calls
// to Run return an error.
func (s *Server) Stop() error {
	s.stopMux.Lock()
	defer s.stopMux.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	log.Infof("Stopping scheduler server")

	var err error
	if s.appCtx.Hooks.StopAPI != nil {
		err = s.appCtx.Hooks.StopAPI()
	} else {
		err = s.api.Stop()
	}
	close(s.apiStopped)

	if err != nil {
		return fmt.Errorf("error stopping API: %s", err)
	}
	return nil
}

// API returns the scheduler API created in Boot.
func (s *Server) API() *api.API {
	return s.api
}

// Pool returns the task pool created in Boot.
func (s *Server) Pool() *scheduler.Pool {
	return s.pool
}

// --------------------------------------------------------------------------

// Catch TERM and INT signals to gracefully shut down.
func (s *Server) waitForShutdown() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan

	if err := s.Stop(); err != nil {
		log.Errorf("error shutting down server: %s", err)
	}
}

// queueReady is the default dispatch queue: mark the task ready and log.
// Job submission is out of scope for this server.
func queueReady(t *task.Proxy) {
	t.State = proto.STATE_READY
	log.Infof("ready to run: %s", t.ID())
}

// spawnInitial spawns the workflow's leading cycles: every cycle from the
// initial point up to the runahead bound, or just the first cycle of each
// sequence when no runahead limit is set.
func spawnInitial(pool *scheduler.Pool, wf *scheduler.Workflow) error {
	var bound cycling.Point
	if wf.RunaheadLimit != nil {
		var err error
		bound, err = cycling.PointAdd(wf.InitialPoint, wf.RunaheadLimit)
		if err != nil {
			return err
		}
		pool.ReleaseRunahead(bound)
	}

	seen := map[string]bool{}
	for _, e := range wf.Edges {
		key := e.Seq.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		for pt := e.Seq.FirstPoint(wf.InitialPoint); pt != nil; pt = e.Seq.NextPoint(pt) {
			if err := pool.SpawnCycle(pt); err != nil {
				return err
			}
			if bound == nil || cycling.PointCmp(pt, bound) >= 0 {
				break
			}
		}
	}
	return nil
}
