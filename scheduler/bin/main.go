// Copyright 2020-2022, Square, Inc.

package main

import (
	"log"

	"github.com/alexflint/go-arg"

	"github.com/cylc/cylc-flow-sub007/scheduler/app"
	"github.com/cylc/cylc-flow-sub007/scheduler/server"
)

var args struct {
	Config string `arg:"--config,env:SCHEDULER_CONFIG" help:"path to the scheduler config file"`
}

func main() {
	arg.MustParse(&args)

	appCtx := app.Defaults()
	appCtx.ConfigFile = args.Config

	s := server.NewServer(appCtx)
	if err := s.Boot(); err != nil {
		log.Fatalf("Error starting scheduler: %s", err)
	}
	err := s.Run(true)
	log.Fatalf("Scheduler stopped: %s", err)
}
