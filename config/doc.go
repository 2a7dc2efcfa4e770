/*
Copyright 2020-2022, Square, Inc.

Package config provides the ability to load config files into predefined
structures used by the workflow scheduler. The scheduler uses the Scheduler
struct in scheduler/bin/main.go, which provides all of the config
information needed to run a workflow.

Types of config structs provided by this package:

* Scheduler: all of the config needed to run the scheduler

* Workflow: one cyclic workflow (cycling mode, initial/final cycle points,
  cycle point time zone, runahead limit, and the dependency graph)

* Server: the configuration for running a webserver (ex: the listen address
  the server should run on, the TLS config the server should run with, etc.)

* SQLDb: the configuration for connecting to a SQL database (ex: the type of
  the database and the DSN of the database server)

* TLS: the configuration for constructing a Go tls.Config (ex: the CA cert
  file to use, the key file to use, etc.)
*/
package config
