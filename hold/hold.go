// Copyright 2020-2022, Square, Inc.

// Package hold tracks administratively held tasks: (name, point) pairs
// withheld from dispatch regardless of prerequisite satisfaction. The
// store covers both instantiated tasks and future tasks not yet spawned.
package hold

import (
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cylc/cylc-flow-sub007/cycling"
	"github.com/cylc/cylc-flow-sub007/proto"
	"github.com/cylc/cylc-flow-sub007/retry"
	"github.com/cylc/cylc-flow-sub007/task"
)

const (
	persistTries = 3
	persistWait  = 500 * time.Millisecond
)

// An Item is one held entry: a task name and a canonical cycle point
// string.
type Item struct {
	Name  string
	Point string
}

// A Store persists the full hold store. Called with a complete snapshot
// on every mutation; durability is the caller's problem.
type Store func(held []proto.HeldTask) error

// A Manager owns the hold store for one workflow. Not safe for concurrent
// use; it belongs to the scheduling loop.
type Manager struct {
	cy      *cycling.Cycler
	held    map[Item]bool
	persist Store
}

func NewManager(cy *cycling.Cycler, persist Store) *Manager {
	return &Manager{
		cy:      cy,
		held:    map[Item]bool{},
		persist: persist,
	}
}

// IsHeld reports whether (name, point) is in the store. The scheduler
// consults this at spawn time so future holds take effect.
func (m *Manager) IsHeld(name, point string) bool {
	return m.held[Item{name, point}]
}

// Items returns the store contents sorted by point then name.
func (m *Manager) Items() []Item {
	items := make([]Item, 0, len(m.held))
	for it := range m.held {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Point != items[j].Point {
			return items[i].Point < items[j].Point
		}
		return items[i].Name < items[j].Name
	})
	return items
}

// HoldActiveTasks marks instantiated tasks held and adds them to the
// store.
func (m *Manager) HoldActiveTasks(tasks []*task.Proxy) {
	for _, t := range tasks {
		t.Held = true
		m.held[Item{t.Def.Name, t.Point.String()}] = true
	}
	m.save()
}

// HoldFutureTasks adds (name, point) pairs for tasks not yet spawned.
func (m *Manager) HoldFutureTasks(items []Item) {
	for _, it := range items {
		m.held[it] = true
	}
	m.save()
}

// ReleaseActiveTasks unmarks held tasks and removes them from the store.
// Tasks that are ready to run afterwards are handed to the queue
// callback; the hold store has no other path into the dispatch loop.
func (m *Manager) ReleaseActiveTasks(tasks []*task.Proxy, queue func(*task.Proxy)) {
	for _, t := range tasks {
		t.Held = false
		delete(m.held, Item{t.Def.Name, t.Point.String()})
		if queue != nil && t.Ready() {
			queue(t)
		}
	}
	m.save()
}

// ReleaseFutureTasks removes pairs from the store. Releasing a pair that
// is not held is a no-op.
func (m *Manager) ReleaseFutureTasks(items []Item) {
	for _, it := range items {
		delete(m.held, it)
	}
	m.save()
}

// LoadFromDB replaces the store with persisted state at startup. Does not
// persist; the database is already the source here.
func (m *Manager) LoadFromDB(held []proto.HeldTask) {
	m.held = make(map[Item]bool, len(held))
	for _, h := range held {
		m.held[Item{h.Name, h.Point}] = true
	}
}

// AsPool materializes the store as a read-only pseudo task pool, so task
// filters written against real pools also cover not-yet-spawned held
// tasks. Entries whose points no longer parse (stale rows after a config
// change) are skipped.
func (m *Manager) AsPool() []*task.Proxy {
	var pool []*task.Proxy
	for _, it := range m.Items() {
		p, err := m.cy.Point(it.Point)
		if err != nil {
			log.Warnf("skipping held task %s/%s: %s", it.Point, it.Name, err)
			continue
		}
		pool = append(pool, &task.Proxy{
			Def:   &task.Def{Name: it.Name},
			Point: p,
			State: proto.STATE_WAITING,
			Held:  true,
		})
	}
	return pool
}

// save persists the full store snapshot, with retries. A persistence
// failure is logged, not returned: the in-memory store is authoritative
// until the next successful save.
func (m *Manager) save() {
	if m.persist == nil {
		return
	}
	items := m.Items()
	held := make([]proto.HeldTask, 0, len(items))
	for _, it := range items {
		held = append(held, proto.HeldTask{Name: it.Name, Point: it.Point})
	}
	err := retry.Do(persistTries, persistWait,
		func() error { return m.persist(held) },
		func(err error) { log.Warnf("error saving hold store (will retry): %s", err) },
	)
	if err != nil {
		log.Errorf("failed to save hold store: %s", err)
	}
}
