package store

import (
	"context"
	"sync"

	"checkpoint/internal/audit"
)

type InMemoryEventStore struct {
	mu     sync.RWMutex
	events map[string][]audit.Event
}

func NewInMemoryEventStore() *InMemoryEventStore {
	return &InMemoryEventStore{events: make(map[string][]audit.Event)}
}

func (s *InMemoryEventStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.SubjectID] = append(s.events[event.SubjectID], event)
	return nil
}

func (s *InMemoryEventStore) ListBySubject(_ context.Context, subjectID string, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[subjectID]
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return append([]audit.Event{}, events...), nil
}
