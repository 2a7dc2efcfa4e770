// Copyright 2020-2022, Square, Inc.

// Package app provides the scheduler's dependency-injection context:
// hooks and factories with sane defaults that tests and custom builds
// can override.
package app

import (
	"github.com/cylc/cylc-flow-sub007/config"
	"github.com/cylc/cylc-flow-sub007/db"
)

type Context struct {
	Hooks     Hooks
	Factories Factories

	// ConfigFile is the path given on the command line; used by the
	// default LoadConfig hook.
	ConfigFile string

	Config config.Scheduler
}

type Factories struct {
	// MakeStore makes the persistence Store. The default uses MySQL when
	// a DSN is configured and process memory otherwise.
	MakeStore func(Context) (db.Store, error)
}

type Hooks struct {
	LoadConfig func(Context) (config.Scheduler, error)

	// RunAPI runs the scheduler API. It should block until the API is
	// stopped via StopAPI. If provided, it is called instead of api.Run,
	// and StopAPI must be provided as well.
	RunAPI func() error

	// StopAPI stops the scheduler API; it should cause RunAPI to return.
	// If provided, it is called instead of api.Stop, and RunAPI must be
	// provided as well.
	StopAPI func() error
}

func Defaults() Context {
	return Context{
		Factories: Factories{
			MakeStore: MakeStore,
		},
		Hooks: Hooks{
			LoadConfig: LoadConfig,
		},
	}
}

func LoadConfig(appCtx Context) (config.Scheduler, error) {
	cfg := config.Defaults()
	if appCtx.ConfigFile == "" {
		return cfg, nil
	}
	if err := config.Load(appCtx.ConfigFile, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func MakeStore(appCtx Context) (db.Store, error) {
	if appCtx.Config.Db.DSN == "" {
		return db.NewMemoryStore(), nil
	}
	dbc := db.NewConnectionPool(10, 10, appCtx.Config.Db.DSN, nil)
	return db.NewSQLStore(dbc), nil
}
