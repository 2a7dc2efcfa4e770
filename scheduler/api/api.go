// Copyright 2020-2022, Square, Inc.

// Package api provides controllers for the scheduler's status and
// command endpoints. Controllers are "dumb wiring"; there is little to no
// application logic in this package.
package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/cylc/cylc-flow-sub007/scheduler"
	"github.com/cylc/cylc-flow-sub007/scheduler/app"
)

const (
	API_ROOT = "/api/v1/"
)

// API provides controllers for endpoints it registers with a router.
type API struct {
	appCtx app.Context
	pool   *scheduler.Pool
	// --
	// The pool is owned by the scheduling loop and not locked; all API
	// access is serialised through this mutex.
	poolMux sync.Mutex
	echo    *echo.Echo
}

// NewAPI makes a new API. It initializes an echo web server within the
// struct and registers all of the API's routes with it.
func NewAPI(appCtx app.Context, pool *scheduler.Pool) *API {
	api := &API{
		appCtx: appCtx,
		pool:   pool,
		// --
		echo: echo.New(),
	}

	// //////////////////////////////////////////////////////////////////////
	// Routes
	// //////////////////////////////////////////////////////////////////////
	// List all task instances (including held future tasks).
	api.echo.GET(API_ROOT+"tasks", api.taskListHandler)
	// Get the prerequisite status dump of one task instance.
	api.echo.GET(API_ROOT+"tasks/:point/:name/prerequisites", api.prereqStatusHandler)
	// Hold one task, active or future.
	api.echo.PUT(API_ROOT+"tasks/:point/:name/hold", api.holdHandler)
	// Release one task, active or future.
	api.echo.PUT(API_ROOT+"tasks/:point/:name/release", api.releaseHandler)

	// //////////////////////////////////////////////////////////////////////
	// Middleware and hooks
	// //////////////////////////////////////////////////////////////////////
	api.echo.Use(middleware.Recover())
	api.echo.Use(middleware.Logger())

	return api
}

// Run runs the API server, blocking until it is stopped.
func (api *API) Run() error {
	tls := api.appCtx.Config.Server.TLS
	if tls.CertFile != "" && tls.KeyFile != "" {
		return api.echo.StartTLS(api.appCtx.Config.Server.ListenAddress, tls.CertFile, tls.KeyFile)
	}
	return api.echo.Start(api.appCtx.Config.Server.ListenAddress)
}

// Stop shuts the API server down, causing Run to return.
func (api *API) Stop() error {
	tls := api.appCtx.Config.Server.TLS
	if tls.CertFile != "" && tls.KeyFile != "" {
		return api.echo.TLSServer.Shutdown(context.TODO())
	}
	return api.echo.Server.Shutdown(context.TODO())
}

func (api *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	api.echo.ServeHTTP(w, r)
}

// ============================== CONTROLLERS ============================== //

// GET <API_ROOT>/tasks
func (api *API) taskListHandler(c echo.Context) error {
	api.poolMux.Lock()
	defer api.poolMux.Unlock()
	return c.JSON(http.StatusOK, api.pool.Summaries())
}

// GET <API_ROOT>/tasks/{point}/{name}/prerequisites
func (api *API) prereqStatusHandler(c echo.Context) error {
	api.poolMux.Lock()
	defer api.poolMux.Unlock()

	id := c.Param("point") + "/" + c.Param("name")
	t, ok := api.pool.Get(id)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "task not found: "+id)
	}
	return c.JSON(http.StatusOK, t.Summary().Prerequisites)
}

// PUT <API_ROOT>/tasks/{point}/{name}/hold
func (api *API) holdHandler(c echo.Context) error {
	api.poolMux.Lock()
	defer api.poolMux.Unlock()

	name, point := c.Param("name"), c.Param("point")
	api.pool.HoldTask(name, point)
	log.Infof("held %s/%s", point, name)
	return nil
}

// PUT <API_ROOT>/tasks/{point}/{name}/release
func (api *API) releaseHandler(c echo.Context) error {
	api.poolMux.Lock()
	defer api.poolMux.Unlock()

	name, point := c.Param("name"), c.Param("point")
	api.pool.ReleaseTask(name, point)
	log.Infof("released %s/%s", point, name)
	return nil
}
