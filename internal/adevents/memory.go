package adevents

import (
	"context"
	"sync"
)

// InMemoryStore collects events in memory for development and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []*Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Save(ctx context.Context, e *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

// Events returns a snapshot of the recorded events.
func (s *InMemoryStore) Events() []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]*Event, len(s.events))
	copy(res, s.events)
	return res
}
