// Copyright 2020-2022, Square, Inc.

package config

import (
	"io/ioutil"
	"os"

	"gopkg.in/yaml.v2"
)

///////////////////////////////////////////////////////////////////////////////
// High-Level Config Structs
///////////////////////////////////////////////////////////////////////////////

// The config used by the scheduler. This is read from in scheduler/bin/main.go.
type Scheduler struct {
	// The config that the scheduler's status/command API will run with.
	Server

	// The config that the scheduler will use to connect to its database.
	// If DSN is empty, an in-memory store is used and nothing survives a
	// restart.
	Db SQLDb `yaml:"db"`

	// The workflow this scheduler runs.
	Workflow Workflow `yaml:"workflow"`
}

// Workflow describes one cyclic workflow: its cycling mode, bounding
// cycle points, and dependency graph.
type Workflow struct {
	// Workflow name, used in logs and persistence rows.
	Name string `yaml:"name"`

	// Cycling mode: "integer", "iso8601" (or "gregorian"), or "nocycle".
	// Empty means iso8601.
	CyclingMode string `yaml:"cycling_mode"`

	// The first cycle point of the workflow.
	InitialCyclePoint string `yaml:"initial_cycle_point"`

	// The last cycle point, if any. Empty means unbounded.
	FinalCyclePoint string `yaml:"final_cycle_point"`

	// Explicit cycle point time zone ("Z", "+05:30"). Empty defers to
	// UTCMode. ISO 8601 mode only.
	TimeZone string `yaml:"cycle_point_time_zone"`

	// With no explicit time zone, assume UTC rather than the local zone.
	UTCMode bool `yaml:"utc_mode"`

	// How far ahead of the slowest task new instances may be spawned, as
	// an interval in the workflow's cycling mode ("P3", "PT12H"). Empty
	// means no runahead limit.
	RunaheadLimit string `yaml:"runahead_limit"`

	// The dependency graph, one section per recurrence expression.
	Graph []GraphSection `yaml:"graph"`
}

// GraphSection is one recurrence expression and the dependencies that
// recur on it. Each dependency is "expression => task", e.g.
// "foo[-P1D] & bar => baz".
type GraphSection struct {
	Recurrence   string   `yaml:"recurrence"`
	Dependencies []string `yaml:"dependencies"`
}

///////////////////////////////////////////////////////////////////////////////
// Config Components
///////////////////////////////////////////////////////////////////////////////

// Configuration for a web server.
type Server struct {
	// The address the server will listen on (ex: "127.0.0.1:8111").
	ListenAddress string `yaml:"listen_address"`

	// The TLS config used by the server.
	TLS `yaml:"tls_config"`
}

// Configuration for a SQL database.
type SQLDb struct {
	// The driverName that is passed to sql.Open() (ex: "mysql").
	Type string

	// The full Data Source Name (DSN) of the sql database (see
	// https://github.com/go-sql-driver/mysql#dsn-data-source-name).
	// "parseTime=true" is always appended, so you don't need to add it.
	DSN string

	// The path to the database's CLI tool. This is only used for
	// testing. Ex: /usr/bin/mysql
	CLIPath string `yaml:"cli_path"`
}

// TLS configuration.
type TLS struct {
	// The certificate file to use.
	CertFile string `yaml:"cert_file"`

	// The key file to use.
	KeyFile string `yaml:"key_file"`

	// The CA file to use.
	CAFile string `yaml:"ca_file"`
}

///////////////////////////////////////////////////////////////////////////////
// Loading Config
///////////////////////////////////////////////////////////////////////////////

// Load loads a configuration file into the struct pointed to by the
// configStruct argument, then applies environment overrides.
func Load(configFile string, configStruct interface{}) error {
	// Make sure the file exists.
	_, err := os.Stat(configFile)
	if err != nil {
		return err
	}

	// Read the file.
	data, err := ioutil.ReadFile(configFile)
	if err != nil {
		return err
	}

	// Unmarshal the contents of the file into the provided struct.
	err = yaml.Unmarshal(data, configStruct)
	if err != nil {
		return err
	}

	if s, ok := configStruct.(*Scheduler); ok {
		applyEnv(s)
	}
	return nil
}

// applyEnv overrides config fields from the environment, so deployments
// can keep secrets out of the config file.
func applyEnv(s *Scheduler) {
	if addr := os.Getenv("SCHEDULER_ADDR"); addr != "" {
		s.Server.ListenAddress = addr
	}
	if dsn := os.Getenv("SCHEDULER_DB_DSN"); dsn != "" {
		s.Db.DSN = dsn
	}
}

// Defaults returns a Scheduler config with the default listen address and
// an ISO 8601 UTC workflow.
func Defaults() Scheduler {
	return Scheduler{
		Server: Server{
			ListenAddress: "127.0.0.1:8111",
		},
		Workflow: Workflow{
			UTCMode: true,
		},
	}
}
