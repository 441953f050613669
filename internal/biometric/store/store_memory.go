package store

import (
	"context"
	"fmt"
	"sync"

	"checkpoint/internal/biometric"
	"checkpoint/pkg/platform/sentinel"
)

// InMemoryReferenceStore keeps reference embeddings in memory for tests/dev.
type InMemoryReferenceStore struct {
	mu   sync.RWMutex
	refs map[string]biometric.Reference
}

func NewInMemoryReferenceStore() *InMemoryReferenceStore {
	return &InMemoryReferenceStore{refs: make(map[string]biometric.Reference)}
}

func (s *InMemoryReferenceStore) Save(_ context.Context, ref biometric.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[ref.SubjectID]; ok {
		return fmt.Errorf("reference for %q: %w", ref.SubjectID, sentinel.ErrConflict)
	}
	s.refs[ref.SubjectID] = ref
	return nil
}

func (s *InMemoryReferenceStore) Replace(_ context.Context, ref biometric.Reference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[ref.SubjectID] = ref
	return nil
}

func (s *InMemoryReferenceStore) FindBySubject(_ context.Context, subjectID string) (*biometric.Reference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ref, ok := s.refs[subjectID]; ok {
		return &ref, nil
	}
	return nil, fmt.Errorf("reference for %q: %w", subjectID, sentinel.ErrNotFound)
}
