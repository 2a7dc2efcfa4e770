// Copyright 2020-2022, Square, Inc.

// Package db persists the scheduler's restart-recovery state: the hold
// store and satisfied prerequisite entries.
package db

import (
	"crypto/tls"
	"database/sql"
	"sync"

	"github.com/go-sql-driver/mysql"
)

// A Connector provides a database connection. It encapsulates where and
// how to connect, like the DSN and TLS config, so code using a Connector
// does not need to know this logic.
type Connector interface {
	Connect() (*sql.DB, error)
	Close()
}

// A ConnectionPool is a Connector over one shared sql.DB, reconnecting
// lazily when the connection has gone away.
type ConnectionPool struct {
	maxOpen int
	maxIdle int
	driver  string
	dsn     string
	// --
	db *sql.DB
	*sync.Mutex
}

func NewConnectionPool(maxOpen, maxIdle int, dsn string, tlsConfig *tls.Config) *ConnectionPool {
	params := "?parseTime=true" // always needs to be set
	if tlsConfig != nil {
		mysql.RegisterTLSConfig("custom", tlsConfig)
		params += "&tls=custom"
	}
	return &ConnectionPool{
		maxOpen: maxOpen,
		maxIdle: maxIdle,
		driver:  "mysql",
		dsn:     dsn + params,
		// --
		Mutex: &sync.Mutex{},
	}
}

func (c *ConnectionPool) Connect() (*sql.DB, error) {
	c.Lock()
	defer c.Unlock()

	if c.db != nil {
		if err := c.db.Ping(); err == nil {
			return c.db, nil
		}
		c.db.Close()
		c.db = nil
	}

	db, err := sql.Open(c.driver, c.dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(c.maxOpen)
	db.SetMaxIdleConns(c.maxIdle)

	c.db = db
	return c.db, nil
}

func (c *ConnectionPool) Close() {
	c.Lock()
	defer c.Unlock()

	if c.db == nil {
		return
	}
	c.db.Close()
	c.db = nil
}
