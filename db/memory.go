// Copyright 2020-2022, Square, Inc.

package db

import (
	"context"
	"sync"

	"github.com/cylc/cylc-flow-sub007/proto"
)

// MemoryStore is a Store in process memory, for tests and dev servers
// with no database configured. State does not survive a restart.
type MemoryStore struct {
	mu        sync.Mutex
	held      []proto.HeldTask
	satisfied map[string][]proto.SatisfiedOutput // keyed by owner
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		satisfied: map[string][]proto.SatisfiedOutput{},
	}
}

var _ Store = &MemoryStore{}

func (s *MemoryStore) SaveHeld(ctx context.Context, held []proto.HeldTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.held = append([]proto.HeldTask{}, held...)
	return nil
}

func (s *MemoryStore) LoadHeld(ctx context.Context) ([]proto.HeldTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]proto.HeldTask{}, s.held...), nil
}

func (s *MemoryStore) SaveSatisfied(ctx context.Context, owner string, outputs []proto.SatisfiedOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(outputs) == 0 {
		delete(s.satisfied, owner)
		return nil
	}
	s.satisfied[owner] = append([]proto.SatisfiedOutput{}, outputs...)
	return nil
}

func (s *MemoryStore) LoadSatisfied(ctx context.Context) ([]proto.SatisfiedOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []proto.SatisfiedOutput
	for _, outputs := range s.satisfied {
		all = append(all, outputs...)
	}
	return all, nil
}
