// Copyright 2020-2022, Square, Inc.

package db

import (
	"context"
	"database/sql"

	"github.com/cylc/cylc-flow-sub007/proto"
)

// A Store persists restart-recovery state. Both save methods replace the
// stored snapshot wholesale; the scheduler always writes its full current
// state, never increments.
type Store interface {
	// SaveHeld replaces the persisted hold store.
	SaveHeld(ctx context.Context, held []proto.HeldTask) error

	// LoadHeld returns the persisted hold store.
	LoadHeld(ctx context.Context) ([]proto.HeldTask, error)

	// SaveSatisfied replaces the satisfied prerequisite entries of one
	// owning task instance (its relative id, "point/name").
	SaveSatisfied(ctx context.Context, owner string, outputs []proto.SatisfiedOutput) error

	// LoadSatisfied returns all persisted satisfied entries, for replay at
	// startup.
	LoadSatisfied(ctx context.Context) ([]proto.SatisfiedOutput, error)
}

// SQLStore is a Store on a MySQL database:
//
//	CREATE TABLE held_tasks (
//	  name  VARCHAR(255) NOT NULL,
//	  point VARCHAR(255) NOT NULL,
//	  PRIMARY KEY (name, point)
//	);
//	CREATE TABLE satisfied_outputs (
//	  owner  VARCHAR(512) NOT NULL,
//	  point  VARCHAR(255) NOT NULL,
//	  task   VARCHAR(255) NOT NULL,
//	  output VARCHAR(255) NOT NULL,
//	  PRIMARY KEY (owner, point, task, output)
//	);
type SQLStore struct {
	dbc Connector
}

func NewSQLStore(dbc Connector) *SQLStore {
	return &SQLStore{dbc: dbc}
}

var _ Store = &SQLStore{}

func (s *SQLStore) SaveHeld(ctx context.Context, held []proto.HeldTask) error {
	return s.replace(ctx, "DELETE FROM held_tasks", nil,
		"INSERT INTO held_tasks (name, point) VALUES (?, ?)",
		len(held),
		func(i int) []interface{} {
			return []interface{}{held[i].Name, held[i].Point}
		},
	)
}

func (s *SQLStore) LoadHeld(ctx context.Context) ([]proto.HeldTask, error) {
	conn, err := s.dbc.Connect()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		"SELECT name, point FROM held_tasks ORDER BY point, name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var held []proto.HeldTask
	for rows.Next() {
		var h proto.HeldTask
		if err := rows.Scan(&h.Name, &h.Point); err != nil {
			return nil, err
		}
		held = append(held, h)
	}
	return held, rows.Err()
}

func (s *SQLStore) SaveSatisfied(ctx context.Context, owner string, outputs []proto.SatisfiedOutput) error {
	return s.replace(ctx, "DELETE FROM satisfied_outputs WHERE owner = ?",
		[]interface{}{owner},
		"INSERT INTO satisfied_outputs (owner, point, task, output) VALUES (?, ?, ?, ?)",
		len(outputs),
		func(i int) []interface{} {
			o := outputs[i]
			return []interface{}{owner, o.Point, o.Task, o.Output}
		},
	)
}

func (s *SQLStore) LoadSatisfied(ctx context.Context) ([]proto.SatisfiedOutput, error) {
	conn, err := s.dbc.Connect()
	if err != nil {
		return nil, err
	}
	rows, err := conn.QueryContext(ctx,
		"SELECT owner, point, task, output FROM satisfied_outputs ORDER BY owner")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outputs []proto.SatisfiedOutput
	for rows.Next() {
		var o proto.SatisfiedOutput
		if err := rows.Scan(&o.Owner, &o.Point, &o.Task, &o.Output); err != nil {
			return nil, err
		}
		outputs = append(outputs, o)
	}
	return outputs, rows.Err()
}

// replace runs a full-snapshot write as one transaction: delete the old
// rows, insert the new.
func (s *SQLStore) replace(ctx context.Context, deleteStmt string, deleteArgs []interface{},
	insertStmt string, n int, args func(int) []interface{}) error {

	conn, err := s.dbc.Connect()
	if err != nil {
		return err
	}
	tx, err := conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, deleteStmt, deleteArgs...); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if _, err := tx.ExecContext(ctx, insertStmt, args(i)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}
